package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Profile struct {
	Email       string
	DisplayName string
}

// ProfileResolver looks up the email address and display name for a user,
// normally against the users service.
type ProfileResolver interface {
	Resolve(ctx context.Context, userId string) (Profile, error)
}

type HTTPProfileClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProfileClient(baseURL string) *HTTPProfileClient {
	return &HTTPProfileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPProfileClient) Resolve(ctx context.Context, userId string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userId, nil)
	if err != nil {
		return Profile{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("users service returned %d for %s", resp.StatusCode, userId)
	}

	var body struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Profile{}, fmt.Errorf("decode user %s: %w", userId, err)
	}

	name := strings.TrimSpace(body.FirstName + " " + body.LastName)
	if name == "" {
		// fall back to the local part of the address
		name, _, _ = strings.Cut(body.Email, "@")
	}

	return Profile{Email: body.Email, DisplayName: name}, nil
}
