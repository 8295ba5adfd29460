// Package chatd provides a client for the CampusLink messaging engine.
package chatd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Client is a chatd API client. UserID is sent as the forwarded identity
// header on every request; the engine trusts the platform gateway to have
// authenticated it.
type Client struct {
	BaseURL    string
	UserID     string
	HTTPClient *http.Client
}

// NewClient creates a new chatd client acting as the given user.
func NewClient(baseURL, userID string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UserID:     userID,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// DirectRoomKey returns the canonical room key for a DM between the client's
// user and other. Both orderings resolve to the same key.
func (c *Client) DirectRoomKey(other string) string {
	pair := []string{c.UserID, other}
	sort.Strings(pair)
	return "dm:" + pair[0] + ":" + pair[1]
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.UserID != "" {
		req.Header.Set("X-User-ID", c.UserID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("chatd error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// Message represents a chat message.
type Message struct {
	ID        string `json:"id"`
	Room      string `json:"room"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Timestamp int64  `json:"ts"`
}

// MessagesResponse is the response from a room history fetch.
type MessagesResponse struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

// GetMessages retrieves recent messages from a room, oldest first.
func (c *Client) GetMessages(roomKey string, limit int) (*MessagesResponse, error) {
	path := fmt.Sprintf("/rooms/%s/messages", url.PathEscape(roomKey))
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Group represents a group room.
type Group struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AdminID       string    `json:"admin_id"`
	Members       []string  `json:"members,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// GroupsResponse is the response from listing groups.
type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

// ListGroups lists all groups.
func (c *Client) ListGroups() (*GroupsResponse, error) {
	respBody, err := c.doRequest("GET", "/groups", nil)
	if err != nil {
		return nil, err
	}

	var resp GroupsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateGroup creates a group with the client's user as admin.
func (c *Client) CreateGroup(name string) (*Group, error) {
	body, _ := json.Marshal(map[string]string{"name": name})

	respBody, err := c.doRequest("POST", "/groups", body)
	if err != nil {
		return nil, err
	}

	var group Group
	if err := json.Unmarshal(respBody, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteGroup deletes a group. Admin only.
func (c *Client) DeleteGroup(groupID string) error {
	_, err := c.doRequest("DELETE", "/groups/"+url.PathEscape(groupID), nil)
	return err
}

// AddMember adds a user to a group.
func (c *Client) AddMember(groupID, userID string) error {
	body, _ := json.Marshal(map[string]string{"user_id": userID})
	_, err := c.doRequest("POST", "/groups/"+url.PathEscape(groupID)+"/members", body)
	return err
}

// RemoveMember removes a user from a group.
func (c *Client) RemoveMember(groupID, userID string) error {
	path := "/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID)
	_, err := c.doRequest("DELETE", path, nil)
	return err
}

// UnreadResponse is the response from the unread counters fetch.
type UnreadResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// Unread retrieves the user's unread counters by room key.
func (c *Client) Unread() (*UnreadResponse, error) {
	respBody, err := c.doRequest("GET", "/unread", nil)
	if err != nil {
		return nil, err
	}

	var resp UnreadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActivityResponse is the response from the last-activity fetch.
type ActivityResponse struct {
	Activity map[string]int64 `json:"activity"`
}

// Activity retrieves the user's last-activity timestamps by room key.
func (c *Client) Activity() (*ActivityResponse, error) {
	respBody, err := c.doRequest("GET", "/activity", nil)
	if err != nil {
		return nil, err
	}

	var resp ActivityResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkRead resets the user's unread counter for a room.
func (c *Client) MarkRead(roomKey string) error {
	body, _ := json.Marshal(map[string]string{"room": roomKey})
	_, err := c.doRequest("POST", "/read", body)
	return err
}

// User represents a directory profile.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// GetUser looks up a user profile.
func (c *Client) GetUser(userID string) (*User, error) {
	respBody, err := c.doRequest("GET", "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Health retrieves the engine health report.
func (c *Client) Health() (map[string]interface{}, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
