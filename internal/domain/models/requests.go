package models

// TrendRequest is the query of GET /api/trend. Series is a string so that an explicit
// "false" survives default filling.
type TrendRequest struct {
	Series string `query:"series" json:"series" default:"true" validate:"oneof=true false 1 0"`
}
