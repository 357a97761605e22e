package inventoryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Failure families surfaced to the user; server error bodies are not
// propagated.
var (
	ErrRegisterFailed = errors.New("registration failed")
	ErrLoginFailed    = errors.New("invalid credentials")
	ErrFetchItems     = errors.New("failed to fetch items")
	ErrAddItem        = errors.New("failed to add item")
	ErrNotLoggedIn    = errors.New("not logged in")
)

type Item struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	ImageURL    string `json:"imageUrl"`
	OwnerID     uint   `json:"ownerId"`
}

// Client holds the bearer token between calls; Logout only clears it
// locally, the server keeps no session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

func (c *Client) Logout() {
	c.token = ""
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return ErrRegisterFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/auth/register", bytes.NewReader(body))
	if err != nil {
		return ErrRegisterFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrRegisterFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return ErrRegisterFailed
	}
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return ErrLoginFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return ErrLoginFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrLoginFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrLoginFailed
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Token == "" {
		return ErrLoginFailed
	}

	c.token = result.Token
	return nil
}

func (c *Client) Items(ctx context.Context) ([]Item, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotLoggedIn
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/inventory", nil)
	if err != nil {
		return nil, ErrFetchItems
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrFetchItems
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrFetchItems
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, ErrFetchItems
	}
	return items, nil
}

func (c *Client) AddItem(ctx context.Context, name, description string, quantity int, filename string, image io.Reader) (*Item, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotLoggedIn
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("name", name); err != nil {
		return nil, ErrAddItem
	}
	if err := w.WriteField("description", description); err != nil {
		return nil, ErrAddItem
	}
	if err := w.WriteField("quantity", strconv.Itoa(quantity)); err != nil {
		return nil, ErrAddItem
	}
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, ErrAddItem
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, ErrAddItem
	}
	if err := w.Close(); err != nil {
		return nil, ErrAddItem
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/inventory", &buf)
	if err != nil {
		return nil, ErrAddItem
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrAddItem
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, ErrAddItem
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, ErrAddItem
	}
	return &item, nil
}
