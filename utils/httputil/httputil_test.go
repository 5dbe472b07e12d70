package httputil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/require"
)

func TestGetSuccess(t *testing.T) {
	require := require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	resp, err := Get(ts.URL)
	require.NoError(err)
	resp.Body.Close()
}

func TestGetStatusError(t *testing.T) {
	require := require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such thing", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := Get(ts.URL)
	require.True(IsNotFound(err))
	require.True(IsStatus(err, http.StatusNotFound))

	serr := err.(StatusError)
	require.Equal(http.StatusNotFound, serr.Status)
	require.Contains(serr.ResponseDump, "no such thing")
}

func TestGetAcceptedCodes(t *testing.T) {
	require := require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	_, err := Get(ts.URL)
	require.Error(err)

	resp, err := Get(ts.URL, SendAcceptedCodes(http.StatusOK, http.StatusAccepted))
	require.NoError(err)
	resp.Body.Close()
}

func TestGetNetworkError(t *testing.T) {
	require := require.New(t)

	_, err := Get("http://127.0.0.1:1", SendTimeout(time.Second))
	require.True(IsNetworkError(err))
}

func TestSendRetryOn5XX(t *testing.T) {
	require := require.New(t)

	var tries int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tries++
		if tries < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	b := backoff.NewConstantBackOff(10 * time.Millisecond)
	resp, err := Get(ts.URL, SendRetry(RetryBackoff(b)))
	require.NoError(err)
	resp.Body.Close()
	require.Equal(3, tries)
}

func TestSendRetryExhausted(t *testing.T) {
	require := require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	_, err := Get(ts.URL, SendRetry(RetryBackoff(b)))
	require.True(IsStatus(err, http.StatusInternalServerError))
}

func TestSendRetryCodes(t *testing.T) {
	require := require.New(t)

	var tries int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tries++
		if tries < 2 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	b := backoff.NewConstantBackOff(time.Millisecond)
	resp, err := Get(ts.URL, SendRetry(RetryBackoff(b), RetryCodes(http.StatusConflict)))
	require.NoError(err)
	resp.Body.Close()
	require.Equal(2, tries)
}

func TestSendHeaders(t *testing.T) {
	require := require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("remora", r.Header.Get("X-Client"))
	}))
	defer ts.Close()

	resp, err := Get(ts.URL, SendHeaders(map[string]string{"X-Client": "remora"}))
	require.NoError(err)
	resp.Body.Close()
}
