package microsoft

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GraphBaseURL is the Microsoft Graph v1.0 base endpoint.
const GraphBaseURL = "https://graph.microsoft.com/v1.0"

// UserInfo contains a user's basic profile information from Microsoft Graph.
type UserInfo struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// GetUserInfo fetches the signed-in user's profile using an access token.
// Falls back to userPrincipalName if mail is not set.
func GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	return getProfile(ctx, accessToken, GraphBaseURL+"/me")
}

// GetUserProfile fetches a named principal's profile, for application
// tokens that are not bound to a signed-in user.
func GetUserProfile(ctx context.Context, accessToken, principal string) (*UserInfo, error) {
	return getProfile(ctx, accessToken, GraphBaseURL+"/users/"+url.PathEscape(principal))
}

func getProfile(ctx context.Context, accessToken, resource string) (*UserInfo, error) {
	u := resource + "?$select=id,displayName,mail,userPrincipalName"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request failed with status %d: %w",
			resp.StatusCode, WrapError(resp.StatusCode))
	}

	var userInfo UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	return &userInfo, nil
}

// GetUserEmail returns the user's email address.
// Falls back to userPrincipalName if mail is not set.
func (u *UserInfo) GetUserEmail() string {
	if u.Mail != "" {
		return u.Mail
	}
	return u.UserPrincipalName
}
