package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/edugenius/edugenius-api/internal/apperror"
)

const facebookMeURL = "https://graph.facebook.com/v22.0/me"

// Facebook exchanges a caller-supplied Facebook access token for the
// account's profile via the Graph API.  BaseURL and Client are injectable
// for tests.
type Facebook struct {
	BaseURL string
	Client  *http.Client
}

func NewFacebook() *Facebook { return &Facebook{} }

type facebookUserInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (p *Facebook) Authenticate(ctx context.Context, creds Credentials) (Profile, error) {
	base := p.BaseURL
	if base == "" {
		base = facebookMeURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	q := url.Values{}
	q.Set("fields", "id,name,email,first_name,last_name,picture")
	q.Set("access_token", creds.FacebookAccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return Profile{}, apperror.Wrap(apperror.ServerError, "Failed to build Facebook request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, apperror.Wrap(apperror.Unauthorized, "Invalid Facebook access token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, apperror.New(apperror.Unauthorized, "Invalid Facebook access token")
	}

	var info facebookUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, apperror.Wrap(apperror.Unauthorized, "Invalid Facebook access token", err)
	}

	return Profile{Email: info.Email, Name: info.Name, AvatarURL: info.Picture.Data.URL}, nil
}
