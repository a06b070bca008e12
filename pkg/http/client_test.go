package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			fmt.Fprintf(w, `{"ua":%q,"q":%q}`, r.Header.Get("User-Agent"), r.URL.Query().Get("q"))
		case "/slow-down":
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, "quota")
		}
	}))
	defer srv.Close()

	c := NewClient(WithHeader("User-Agent", "tp-test"))

	var got struct {
		UA string `json:"ua"`
		Q  string `json:"q"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL + "/json",
		QueryParams: map[string][]string{"q": {"a b"}},
	}, &got)
	require.NoError(t, err)
	assert.Equal(t, "tp-test", got.UA)
	assert.Equal(t, "a b", got.Q)

	var raw []byte
	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/slow-down"}, &raw)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "quota", se.Body)
}

func TestCookieJarCarriesCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
			return
		}
		ck, err := r.Cookie("sid")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, ck.Value)
	}))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := NewClient(WithCookieJar(jar))

	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/login"}, nil))
	var body []byte
	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/data"}, &body))
	assert.Equal(t, "abc", string(body))

	var se *StatusError
	err = NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/data"}, nil)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}
