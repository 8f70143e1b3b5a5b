package legacyclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const authBodyLimit = 512

// Credentials for the legacy admin panel operator account
type Credentials struct {
	Email    string
	Password string
}

// Authenticate logs in to the legacy panel and returns the resulting session
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	c.logger.Info("Authenticating with legacy panel",
		zap.String("baseURL", c.baseURL.String()),
		zap.String("email", creds.Email))

	// Step 1: Fetch the login page for the CSRF token and the pre-login cookies
	loginPage, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(c.opts.LoginPath)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("failed to fetch login page: %w", err)}
	}
	if loginPage.StatusCode() != http.StatusOK {
		return nil, &AuthError{
			Status: loginPage.StatusCode(),
			Body:   truncate(loginPage.Body(), authBodyLimit),
			Err:    errors.New("unexpected login page status"),
		}
	}

	token, err := extractCSRFToken(loginPage.Body())
	if err != nil {
		return nil, &AuthError{
			Status: loginPage.StatusCode(),
			Body:   truncate(loginPage.Body(), authBodyLimit),
			Err:    err,
		}
	}

	session := NewSession(token)
	session.Merge(loginPage.Cookies())

	// Step 2: Post the credentials with the token and cookies
	resp, err := c.request(ctx, session).
		SetFormData(map[string]string{
			"email":    creds.Email,
			"password": creds.Password,
			"_token":   token,
			"remember": "on",
		}).
		Post(c.opts.LoginPath)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("failed to submit login form: %w", err)}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 400 {
		return nil, &AuthError{
			Status: status,
			Body:   truncate(resp.Body(), authBodyLimit),
			Err:    errors.New("login rejected"),
		}
	}

	// Step 3: A redirect straight back to the login form means the credentials were wrong
	if isRedirect(status) && c.redirectsToLogin(resp.Header().Get("Location")) {
		return nil, &AuthError{
			Status: status,
			Err:    errors.New("invalid credentials"),
		}
	}

	// Login response cookies replace the pre-login ones (session rotation)
	session.Merge(resp.Cookies())
	session.AuthenticatedAt = time.Now()

	// The panel issues a fresh token after login when the response is a page
	if !isRedirect(status) {
		if fresh, err := extractCSRFToken(resp.Body()); err == nil {
			session.setCSRFToken(fresh)
		}
	}

	c.logger.Info("Authenticated with legacy panel", zap.Int("status", status))
	return session, nil
}

// TestConnection checks that the session can read the users resource
func (c *Client) TestConnection(ctx context.Context, session *Session) bool {
	path := c.resourcePath(c.opts.Resources.Users)
	resp, err := c.request(ctx, session).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{"page": "1", "perPage": "1"}).
		Get(path)
	if err != nil {
		c.logger.Warn("Connection test failed", zap.Error(err))
		return false
	}
	session.Merge(resp.Cookies())

	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn("Connection test rejected", zap.Int("status", resp.StatusCode()))
		return false
	}
	if !strings.Contains(resp.Header().Get("Content-Type"), "json") {
		c.logger.Warn("Connection test returned non-JSON content",
			zap.String("contentType", resp.Header().Get("Content-Type")))
		return false
	}
	return true
}

func (c *Client) redirectsToLogin(location string) bool {
	if location == "" {
		return false
	}
	target, err := url.Parse(location)
	if err != nil {
		return false
	}
	return strings.TrimRight(target.Path, "/") == strings.TrimRight(c.opts.LoginPath, "/")
}

// extractCSRFToken reads the token from the csrf-token meta tag, falling back to the hidden form field
func extractCSRFToken(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse login page: %w", err)
	}

	token := strings.TrimSpace(doc.Find(`meta[name="csrf-token"]`).AttrOr("content", ""))
	if token == "" {
		token = strings.TrimSpace(doc.Find(`input[name="_token"]`).AttrOr("value", ""))
	}
	if token == "" {
		return "", errors.New("could not find CSRF token on login page")
	}
	return token, nil
}
