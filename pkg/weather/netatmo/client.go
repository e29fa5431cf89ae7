// Package netatmo reads rain and outdoor temperature history from a Netatmo weather station
package netatmo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/mitchellh/mapstructure"
)

const defaultBaseURL = "https://api.netatmo.com"

// DefaultClient is the HTTP client used by new Clients
var DefaultClient = &http.Client{Timeout: 10 * time.Second}

// Config is specific to the Netatmo API and holds all of the necessary fields for interacting with the API.
// If StationID is not provided, StationName is used to get it from the API.
// If RainModuleID or OutdoorModuleID are not provided, the module names are used to look them up.
// For Authentication, AccessToken, RefreshToken, ClientID and ClientSecret are required
type Config struct {
	StationID   string `mapstructure:"station_id,omitempty"`
	StationName string `mapstructure:"station_name,omitempty"`

	RainModuleID   string `mapstructure:"rain_module_id,omitempty"`
	RainModuleName string `mapstructure:"rain_module_name,omitempty"`

	OutdoorModuleID   string `mapstructure:"outdoor_module_id,omitempty"`
	OutdoorModuleName string `mapstructure:"outdoor_module_name,omitempty"`

	Authentication *TokenData `mapstructure:"authentication,omitempty"`
	ClientID       string     `mapstructure:"client_id,omitempty"`
	ClientSecret   string     `mapstructure:"client_secret,omitempty"`

	BaseURL string `mapstructure:"base_url,omitempty"`
}

// TokenData contains information returned by Netatmo auth API
type TokenData struct {
	AccessToken    string    `json:"access_token" mapstructure:"access_token,omitempty"`
	RefreshToken   string    `json:"refresh_token" mapstructure:"refresh_token,omitempty"`
	ExpiresIn      int       `json:"expires_in" mapstructure:"expires_in,omitempty"`
	ExpirationDate time.Time `json:"-" mapstructure:"expiration_date,omitempty"`
}

// Client is used to interact with Netatmo API
type Client struct {
	Config
	httpClient      *http.Client
	baseURL         *url.URL
	storageCallback func(map[string]any) error
}

// NewClient creates a new Netatmo API client from configuration. Missing station or module IDs are
// looked up by name, which requires an API call
func NewClient(options map[string]any, storageCallback func(map[string]any) error) (*Client, error) {
	client := &Client{httpClient: DefaultClient, storageCallback: storageCallback}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     &client.Config,
	})
	if err != nil {
		return nil, err
	}
	err = decoder.Decode(options)
	if err != nil {
		return nil, err
	}

	if client.Authentication == nil {
		return nil, errors.New("missing required field: authentication")
	}

	base := client.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client.baseURL, err = url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}

	if client.StationID == "" || client.RainModuleID == "" || client.OutdoorModuleID == "" {
		err = client.setDeviceIDs()
		if err != nil {
			return nil, err
		}
	}

	return client, nil
}

// SetHTTPClient replaces the client used for API requests
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

type stationDataResponse struct {
	Body struct {
		Devices []station `json:"devices"`
	} `json:"body"`
}

type station struct {
	ID         string `json:"_id"`
	Name       string `json:"station_name"`
	ModuleName string `json:"module_name"`
	Modules    []struct {
		ID   string `json:"_id"`
		Name string `json:"module_name"`
	} `json:"modules"`
}

func (c *Client) getStationData() (stationDataResponse, error) {
	values := url.Values{}
	if c.StationID != "" {
		values.Add("device_id", c.StationID)
	}
	values.Add("get_favorites", "false")

	var respData stationDataResponse
	err := c.get("/api/getstationsdata", values, &respData)
	return respData, err
}

func (c *Client) setDeviceIDs() error {
	if c.StationID == "" && c.StationName == "" {
		return errors.New("station_id or station_name must be provided")
	}
	if c.RainModuleID == "" && c.RainModuleName == "" {
		return errors.New("rain_module_id or rain_module_name must be provided")
	}
	if c.OutdoorModuleID == "" && c.OutdoorModuleName == "" {
		return errors.New("outdoor_module_id or outdoor_module_name must be provided")
	}

	stationData, err := c.getStationData()
	if err != nil {
		return fmt.Errorf("error getting station data: %w", err)
	}

	var targetStation station
	for _, s := range stationData.Body.Devices {
		if (c.StationID != "" && s.ID == c.StationID) || (c.StationID == "" && s.ModuleName == c.StationName) {
			targetStation = s
			break
		}
	}
	if targetStation.ID == "" {
		return fmt.Errorf("no station found with name %q", c.StationName)
	}
	c.StationID = targetStation.ID

	for _, m := range targetStation.Modules {
		if c.RainModuleID == "" && m.Name == c.RainModuleName {
			c.RainModuleID = m.ID
		}
		if c.OutdoorModuleID == "" && m.Name == c.OutdoorModuleName {
			c.OutdoorModuleID = m.ID
		}
	}
	if c.RainModuleID == "" {
		return fmt.Errorf("no rain module found with name %q", c.RainModuleName)
	}
	if c.OutdoorModuleID == "" {
		return fmt.Errorf("no outdoor module found with name %q", c.OutdoorModuleName)
	}

	return nil
}

// get performs an authenticated GET and decodes the JSON response into out
func (c *Client) get(path string, values url.Values, out any) error {
	err := c.refreshToken()
	if err != nil {
		return err
	}

	reqURL := *c.baseURL
	reqURL.Path = path
	reqURL.RawQuery = values.Encode()

	req, err := http.NewRequest(http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Add("Authorization", "Bearer "+c.Authentication.AccessToken)
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body with status %d: %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received unexpected status %d with body: %s", resp.StatusCode, string(respBody))
	}

	err = json.Unmarshal(respBody, out)
	if err != nil {
		return fmt.Errorf("unable to read response body '%s': %w", string(respBody), err)
	}
	return nil
}

// refreshToken gets a new access token when the current one is expired and stores it with the callback
func (c *Client) refreshToken() error {
	if clock.Now().Before(c.Authentication.ExpirationDate) {
		return nil
	}

	formData := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.Authentication.RefreshToken},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
	}

	tokenURL := *c.baseURL
	tokenURL.Path = "/oauth2/token"

	req, err := http.NewRequest(http.MethodPost, tokenURL.String(), strings.NewReader(formData.Encode()))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body with status %d: %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received unexpected status %d with body: %s", resp.StatusCode, string(respBody))
	}

	err = json.Unmarshal(respBody, c.Authentication)
	if err != nil {
		return fmt.Errorf("unable to unmarshal refresh token response body: %w", err)
	}
	c.Authentication.ExpirationDate = clock.Now().Add(time.Duration(c.Authentication.ExpiresIn) * time.Second)

	if c.storageCallback == nil {
		return nil
	}

	err = c.storageCallback(c.options())
	if err != nil {
		return fmt.Errorf("error executing storage callback to store new tokens: %w", err)
	}

	return nil
}

// options is the Config in the same shape it was decoded from
func (c *Client) options() map[string]any {
	opts := map[string]any{
		"station_id":          c.StationID,
		"station_name":        c.StationName,
		"rain_module_id":      c.RainModuleID,
		"rain_module_name":    c.RainModuleName,
		"outdoor_module_id":   c.OutdoorModuleID,
		"outdoor_module_name": c.OutdoorModuleName,
		"authentication": map[string]any{
			"access_token":    c.Authentication.AccessToken,
			"refresh_token":   c.Authentication.RefreshToken,
			"expires_in":      c.Authentication.ExpiresIn,
			"expiration_date": c.Authentication.ExpirationDate.Format(time.RFC3339),
		},
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
	}
	if c.BaseURL != "" {
		opts["base_url"] = c.BaseURL
	}
	return opts
}
