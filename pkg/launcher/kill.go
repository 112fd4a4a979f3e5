package launcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// killTimeout bounds a single /@kill request; the server may be half dead.
const killTimeout = 5 * time.Second

// NewKillClient returns the client used for /@kill requests. Proxies are
// bypassed since the target is always localhost, and the certificate is
// not verified so that https.port works with Play's self-signed cert.
func NewKillClient() *http.Client {
	return &http.Client{
		Timeout: killTimeout,
		Transport: &http.Transport{
			Proxy:           nil,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// KillURL is the Play endpoint that makes a running server exit.
func KillURL(protocol, port string) string {
	return fmt.Sprintf("%s://localhost:%s/@kill", protocol, port)
}

// Kill asks the server at url to stop. The result is informational only:
// nothing may be listening, which is the common case.
func Kill(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}
