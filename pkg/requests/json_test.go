package requests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Name string `json:"name"`
}

type echoResponse struct {
	Greeting string `json:"greeting"`
}

func TestRequestJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hello":
			if r.Header.Get("Content-Type") != "application/json" {
				http.Error(w, "bad content type", http.StatusBadRequest)
				return
			}
			req := echoRequest{}
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(echoResponse{Greeting: "hello " + req.Name})
		case "/missing":
			http.Error(w, "no such thing", http.StatusNotFound)
		case "/garbage":
			w.Write([]byte("{"))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	resp, err := RequestJSON[echoResponse](ctx, nil, "POST", server.URL+"/hello", echoRequest{Name: "bob"})
	require.NoError(t, err)
	require.Equal(t, "hello bob", resp.Greeting)

	_, err = RequestJSON[echoResponse](ctx, server.Client(), "GET", server.URL+"/missing", nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.Equal(t, "no such thing", statusErr.Body)

	_, err = RequestJSON[echoResponse](ctx, nil, "GET", server.URL+"/garbage", nil)
	require.Error(t, err)

	require.NoError(t, RequestNoContent(ctx, nil, "DELETE", server.URL+"/empty"))
	require.Error(t, RequestNoContent(ctx, nil, "DELETE", server.URL+"/missing"))
}
