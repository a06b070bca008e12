package http

import xutil "TrendPulse/pkg/util"

// ParseBoolDefault parses a query flag or returns def if empty/invalid.
func ParseBoolDefault(s string, def bool) bool { return xutil.ParseBoolDefault(s, def) }
