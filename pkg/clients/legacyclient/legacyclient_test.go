package legacyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testEmail    = "ops@example.org"
	testPassword = "correct-horse"
	testToken    = "tok123"
)

// fakePanel emulates the legacy admin panel: login form with CSRF, session cookie rotation
// and paginated JSON resources
type fakePanel struct {
	mu        sync.Mutex
	users     []map[string]any
	events    []map[string]any
	signups   []map[string]any
	loginPage string
	loginCode int
	loginBody string
	failPage  map[string]int
	requests  map[string]int
	// repeatNext makes every page advertise the same next link
	repeatNext bool
	// endlessNext makes every page advertise a new next link
	endlessNext bool
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		loginPage: `<html><head><meta name="csrf-token" content="` + testToken + `"></head><body><form></form></body></html>`,
		failPage:  make(map[string]int),
		requests:  make(map[string]int),
	}
}

func (p *fakePanel) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/nova/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "laravel_session", Value: "pre-login"})
			http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "abc%3D"})
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, p.loginPage)
			return
		}

		if p.loginCode != 0 {
			w.WriteHeader(p.loginCode)
			fmt.Fprint(w, p.loginBody)
			return
		}

		_ = r.ParseForm()
		pre, err := r.Cookie("laravel_session")
		if err != nil || pre.Value != "pre-login" ||
			r.PostForm.Get("_token") != testToken ||
			r.Header.Get("X-CSRF-TOKEN") != testToken {
			w.WriteHeader(419)
			return
		}
		if r.PostForm.Get("email") != testEmail || r.PostForm.Get("password") != testPassword {
			w.Header().Set("Location", "/nova/login")
			w.WriteHeader(http.StatusFound)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: "laravel_session", Value: "authenticated"})
		w.Header().Set("Location", "/nova")
		w.WriteHeader(http.StatusFound)
	})

	mux.HandleFunc("/nova-api/", func(w http.ResponseWriter, r *http.Request) {
		session, err := r.Cookie("laravel_session")
		if err != nil || session.Value != "authenticated" {
			w.Header().Set("Location", "/nova/login")
			w.WriteHeader(http.StatusFound)
			return
		}

		resource := strings.TrimPrefix(r.URL.Path, "/nova-api/")
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))

		p.mu.Lock()
		p.requests[resource]++
		failAt := p.failPage[resource]
		p.mu.Unlock()

		if failAt != 0 && page == failAt {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var all []map[string]any
		switch resource {
		case "users":
			all = p.users
		case "events":
			all = p.events
		case "signups":
			all = p.signups
		case "broken":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"resources": [`)
			return
		default:
			http.NotFound(w, r)
			return
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(all) {
			start = len(all)
		}
		if end > len(all) {
			end = len(all)
		}

		var next *string
		switch {
		case p.repeatNext:
			link := "http://panel/nova-api/" + resource + "?page=2"
			next = &link
		case p.endlessNext:
			link := fmt.Sprintf("http://panel/nova-api/%s?page=%d", resource, page+1)
			next = &link
			start, end = 0, len(all)
		case end < len(all):
			link := fmt.Sprintf("http://panel/nova-api/%s?page=%d", resource, page+1)
			next = &link
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resources":     all[start:end],
			"next_page_url": next,
			"per_page":      perPage,
		})
	})
	return mux
}

func novaUser(id int, email string) map[string]any {
	return map[string]any{
		"id": map[string]any{"value": id},
		"fields": []map[string]any{
			{"attribute": "email", "value": email},
			{"attribute": "first_name", "value": "Vol"},
			{"attribute": "last_name", "value": strconv.Itoa(id)},
		},
	}
}

func newTestClient(t *testing.T, panel *fakePanel) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(panel.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		BaseURL:  server.URL,
		MaxPages: 50,
	}, zap.NewNop())
	require.NoError(t, err)
	return client, server
}

func authenticate(t *testing.T, client *Client) *Session {
	t.Helper()
	session, err := client.Authenticate(context.Background(), Credentials{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	return session
}

func TestNewClient_RejectsRelativeBaseURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "/relative"}, zap.NewNop())
	assert.Error(t, err)
}

func TestAuthenticate_Success(t *testing.T) {
	client, _ := newTestClient(t, newFakePanel())

	session := authenticate(t, client)

	assert.Equal(t, testToken, session.CSRFToken())
	assert.Equal(t, "abc=", session.XSRFToken())
	assert.False(t, session.AuthenticatedAt.IsZero())

	cookies := map[string]string{}
	for _, c := range session.Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "authenticated", cookies["laravel_session"], "login cookie should replace the pre-login one")
}

func TestAuthenticate_HiddenInputTokenFallback(t *testing.T) {
	panel := newFakePanel()
	panel.loginPage = `<form><input type="hidden" name="_token" value="` + testToken + `"></form>`
	client, _ := newTestClient(t, panel)

	session := authenticate(t, client)
	assert.Equal(t, testToken, session.CSRFToken())
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t, newFakePanel())

	_, err := client.Authenticate(context.Background(), Credentials{Email: testEmail, Password: "wrong"})
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusFound, authErr.Status)
	assert.Contains(t, authErr.Error(), "invalid credentials")
}

func TestAuthenticate_RejectedStatusTruncatesBody(t *testing.T) {
	panel := newFakePanel()
	panel.loginCode = http.StatusInternalServerError
	panel.loginBody = strings.Repeat("x", 2000)
	client, _ := newTestClient(t, panel)

	_, err := client.Authenticate(context.Background(), Credentials{Email: testEmail, Password: testPassword})

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusInternalServerError, authErr.Status)
	assert.Len(t, authErr.Body, authBodyLimit)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	panel := newFakePanel()
	panel.loginPage = `<html><body>maintenance</body></html>`
	client, _ := newTestClient(t, panel)

	_, err := client.Authenticate(context.Background(), Credentials{Email: testEmail, Password: testPassword})

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusOK, authErr.Status)
	assert.Contains(t, authErr.Body, "maintenance")
}

func TestAuthenticate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Options{BaseURL: url}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Authenticate(context.Background(), Credentials{Email: testEmail, Password: testPassword})
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Zero(t, authErr.Status)
}

func TestTestConnection(t *testing.T) {
	panel := newFakePanel()
	panel.users = []map[string]any{novaUser(1, "a@example.org")}
	client, _ := newTestClient(t, panel)

	session := authenticate(t, client)
	assert.True(t, client.TestConnection(context.Background(), session))

	assert.False(t, client.TestConnection(context.Background(), NewSession("")), "an anonymous session is redirected")
}

func TestScrapePaged_FollowsPagesUntilNoNextLink(t *testing.T) {
	panel := newFakePanel()
	for i := 1; i <= 5; i++ {
		panel.users = append(panel.users, novaUser(i, fmt.Sprintf("user%d@example.org", i)))
	}
	client, _ := newTestClient(t, panel)
	session := authenticate(t, client)

	result := ScrapePaged(context.Background(), client, session, "users", 2, DecodeUser)

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Pages)
	require.Len(t, result.Records, 5)
	assert.Equal(t, "1", result.Records[0].ID)
	assert.Equal(t, "user5@example.org", result.Records[4].Email)
	assert.Equal(t, "Vol", result.Records[4].FirstName)
}

func TestScrapePaged_StopsOnRepeatedNextLink(t *testing.T) {
	panel := newFakePanel()
	panel.repeatNext = true
	panel.users = []map[string]any{novaUser(1, "a@example.org"), novaUser(2, "b@example.org")}
	client, _ := newTestClient(t, panel)
	session := authenticate(t, client)

	result := ScrapePaged(context.Background(), client, session, "users", 1, DecodeUser)

	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Pages)
	assert.Len(t, result.Records, 2)
}

func TestScrapePaged_StopsAtMaxPages(t *testing.T) {
	panel := newFakePanel()
	panel.endlessNext = true
	panel.users = []map[string]any{novaUser(1, "a@example.org")}
	server := httptest.NewServer(panel.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL, MaxPages: 3}, zap.NewNop())
	require.NoError(t, err)
	session := authenticate(t, client)

	result := ScrapePaged(context.Background(), client, session, "users", 10, DecodeUser)

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 3, panel.requests["users"])
}

func TestScrapePaged_PageFailureKeepsEarlierPages(t *testing.T) {
	panel := newFakePanel()
	for i := 1; i <= 6; i++ {
		panel.users = append(panel.users, novaUser(i, fmt.Sprintf("user%d@example.org", i)))
	}
	panel.failPage["users"] = 3
	client, _ := newTestClient(t, panel)
	session := authenticate(t, client)

	result := ScrapePaged(context.Background(), client, session, "users", 2, DecodeUser)

	var pageErr *PageFetchError
	require.True(t, errors.As(result.Err, &pageErr))
	assert.Equal(t, "users", pageErr.Resource)
	assert.Equal(t, 3, pageErr.Page)
	assert.Len(t, result.Records, 4)
}

func TestScrapePaged_InvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, newFakePanel())
	session := authenticate(t, client)

	result := ScrapePaged(context.Background(), client, session, "broken", 10, DecodeUser)

	var pageErr *PageFetchError
	require.True(t, errors.As(result.Err, &pageErr))
	assert.Contains(t, pageErr.Error(), "invalid JSON")
	assert.Empty(t, result.Records)
}

func TestScrapePaged_ExpiredSession(t *testing.T) {
	client, _ := newTestClient(t, newFakePanel())

	result := ScrapePaged(context.Background(), client, NewSession(""), "users", 10, DecodeUser)

	assert.ErrorIs(t, result.Err, ErrSessionExpired)
}

func TestScrapePaged_BadRecordIsSkipped(t *testing.T) {
	panel := newFakePanel()
	panel.signups = []map[string]any{
		{"id": 1, "user_id": 10, "event_id": 20, "status": "2"},
		{"id": 2, "event_id": 20, "status": "2"},
		{"id": 3, "user_id": 11, "event_id": 20, "status": "1"},
	}
	client, _ := newTestClient(t, panel)
	session := authenticate(t, client)

	result := ScrapePaged(context.Background(), client, session, "signups", 10, DecodeSignup)

	require.NoError(t, result.Err)
	require.Len(t, result.Records, 2)
	require.Len(t, result.RecordErrors, 1)
	assert.Equal(t, "2", result.RecordErrors[0].LegacyID)
	assert.Contains(t, result.RecordErrors[0].Message, "no user")
}

func TestScrapeAll(t *testing.T) {
	panel := newFakePanel()
	panel.users = []map[string]any{novaUser(1, "a@example.org"), novaUser(2, "b@example.org")}
	panel.events = []map[string]any{
		{"id": 7, "name": "Sunday 7th September WGTN", "capacity": 6, "created_at": "2025-08-01T10:00:00Z"},
	}
	panel.signups = []map[string]any{
		{"id": 1, "user_id": 1, "event_id": 7, "status": "2", "position": "Kitchen Prep"},
	}
	panel.failPage["signups"] = 1
	client, _ := newTestClient(t, panel)
	session := authenticate(t, client)

	dataset, report := client.ScrapeAll(context.Background(), session, 10)

	assert.Len(t, dataset.Users, 2)
	require.Len(t, dataset.Events, 1)
	assert.Equal(t, 6, dataset.Events[0].Capacity)
	assert.Empty(t, dataset.Signups)
	assert.False(t, report.Complete())
	require.Len(t, report.PageErrors, 1)
	assert.Equal(t, "signups", report.PageErrors[0].Resource)
	assert.Equal(t, client.BaseURL().String(), dataset.SourceURL)
}

func TestNormalizeRecord(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantID string
		check  func(t *testing.T, r Record)
		errMsg string
	}{
		{
			name:   "nova field list with relationship",
			raw:    `{"id":{"value":42},"fields":[{"attribute":"user","value":"Jo Bloggs","belongsToId":9},{"attribute":"status","value":3}]}`,
			wantID: "42",
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "9", r.String("user"))
				assert.Equal(t, "Jo Bloggs", r.String("user_label"))
				assert.Equal(t, 3, r.Int("status"))
			},
		},
		{
			name:   "flat object",
			raw:    `{"id":"abc","email":" A@Example.org ","capacity":"12"}`,
			wantID: "abc",
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "A@Example.org", r.String("missing", "email"))
				assert.Equal(t, 12, r.Int("capacity"))
			},
		},
		{
			name:   "missing id",
			raw:    `{"email":"a@example.org"}`,
			errMsg: "no id",
		},
		{
			name:   "not an object",
			raw:    `[1,2]`,
			errMsg: "not a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := NormalizeRecord(json.RawMessage(tt.raw))
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, record.ID)
			tt.check(t, record)
		})
	}
}

func TestSession_Merge(t *testing.T) {
	session := NewSession("t")
	session.Merge([]*http.Cookie{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "2"},
	})
	session.Merge([]*http.Cookie{
		{Name: "a", Value: "rotated"},
		{Name: "b", MaxAge: -1},
		nil,
	})

	cookies := session.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "a", cookies[0].Name)
	assert.Equal(t, "rotated", cookies[0].Value)
	assert.Empty(t, session.XSRFToken())
}

func TestFetchAsset_OnlySendsCookiesToLegacyHost(t *testing.T) {
	var gotCookie string
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("laravel_session"); err == nil {
			gotCookie = c.Value
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	t.Cleanup(cdn.Close)

	client, _ := newTestClient(t, newFakePanel())
	session := authenticate(t, client)

	asset, err := client.FetchAsset(context.Background(), session, cdn.URL+"/avatar.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, asset.Status)
	assert.Equal(t, "image/png", asset.ContentType)
	assert.Equal(t, []byte("png"), asset.Body)
	assert.Empty(t, gotCookie)
}

func TestResolveURL(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "https://admin.example.org/"}, zap.NewNop())
	require.NoError(t, err)

	resolved, err := client.ResolveURL("/storage/photos/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://admin.example.org/storage/photos/1.jpg", resolved)

	resolved, err = client.ResolveURL("https://cdn.example.org/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/x.jpg", resolved)

	_, err = client.ResolveURL("  ")
	assert.Error(t, err)
}
