package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/edugenius/edugenius-api/internal/apperror"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Google exchanges a caller-supplied Google access token for the account's
// profile via the userinfo endpoint.  BaseURL and Client are injectable for
// tests; zero values use the real endpoint and http.DefaultClient.
type Google struct {
	BaseURL string
	Client  *http.Client
}

func NewGoogle() *Google { return &Google{} }

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
}

func (p *Google) Authenticate(ctx context.Context, creds Credentials) (Profile, error) {
	url := p.BaseURL
	if url == "" {
		url = googleUserInfoURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Profile{}, apperror.Wrap(apperror.ServerError, "Failed to build Google request", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.GoogleAccessToken)

	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, apperror.Wrap(apperror.Unauthorized, "Invalid Google access token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, apperror.New(apperror.Unauthorized, "Invalid Google access token")
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, apperror.Wrap(apperror.Unauthorized, "Invalid Google access token", err)
	}

	return Profile{Email: info.Email, Name: info.Name, AvatarURL: info.Picture}, nil
}
