// Package identity resolves the caller of an HTTP request to a local user id.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/hitoq/hitoq/internal/config"
	"github.com/hitoq/hitoq/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// ErrUnauthenticated means the request carries no usable identity.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// Resolver maps a request to the id of the calling user.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// HeaderResolver trusts a header set by an upstream gateway.
type HeaderResolver struct {
	Header string
}

// Resolve returns the header value.
func (h HeaderResolver) Resolve(r *http.Request) (string, error) {
	name := h.Header
	if name == "" {
		name = "X-User-Id"
	}
	id := strings.TrimSpace(r.Header.Get(name))
	if id == "" {
		return "", fmt.Errorf("%w: missing %s header", ErrUnauthenticated, name)
	}
	return id, nil
}

// GitHubResolver authenticates a bearer token against the GitHub API and
// maps the token's login to the local user with the same user name.
type GitHubResolver struct {
	DB *gorm.DB
	// BaseURL points at a GitHub Enterprise or test API root. Empty means
	// api.github.com.
	BaseURL string
}

// Resolve reads "Authorization: Bearer <token>".
func (g GitHubResolver) Resolve(r *http.Request) (string, error) {
	token, ok := bearerToken(r)
	if !ok {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	login, err := g.Login(r.Context(), token)
	if err != nil {
		return "", err
	}
	return LookupUserName(g.DB, login)
}

// Login returns the GitHub login that owns token.
func (g GitHubResolver) Login(ctx context.Context, token string) (string, error) {
	client, err := g.client(ctx, token)
	if err != nil {
		return "", err
	}
	user, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return "", fmt.Errorf("%w: github rejected token", ErrUnauthenticated)
		}
		return "", fmt.Errorf("identity: github user: %w", err)
	}
	login := user.GetLogin()
	if login == "" {
		return "", fmt.Errorf("%w: github returned no login", ErrUnauthenticated)
	}
	return login, nil
}

func (g GitHubResolver) client(ctx context.Context, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if g.BaseURL == "" {
		return client, nil
	}
	base := g.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("identity: github base url %q: %w", g.BaseURL, err)
	}
	client.BaseURL = u
	return client, nil
}

// LookupUserName returns the id of the user called userName.
func LookupUserName(db *gorm.DB, userName string) (string, error) {
	var u models.User
	err := db.Select("id").Where("user_name = ?", userName).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: no local user %q", ErrUnauthenticated, userName)
		}
		return "", fmt.Errorf("identity: lookup %q: %w", userName, err)
	}
	return u.ID, nil
}

// New builds the resolver selected by cfg.
func New(cfg config.AuthConfig, db *gorm.DB) (Resolver, error) {
	switch cfg.Mode {
	case "", "header":
		return HeaderResolver{Header: cfg.Header}, nil
	case "github":
		return GitHubResolver{DB: db, BaseURL: cfg.GitHubAPIURL}, nil
	default:
		return nil, fmt.Errorf("identity: unknown auth mode %q", cfg.Mode)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
