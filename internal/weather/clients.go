package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const httpTimeout = 10 * time.Second

// DefaultBaseURL is the OpenWeatherMap data API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// doGet performs a GET request and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", redact(req.URL), stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", redact(req.URL), resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", redact(req.URL), err)
	}

	return nil
}

// redact drops the query string so API keys never reach logs or error text.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

// stripURL unwraps *url.Error, whose message carries the full request URL.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

// ---- current conditions ----

// CurrentClient fetches current conditions by city name.
type CurrentClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewCurrentClientWithURL constructs a CurrentClient pointing at a custom base URL.
func NewCurrentClientWithURL(baseURL, apiKey string) *CurrentClient {
	return &CurrentClient{apiKey: apiKey, baseURL: baseURL, client: newHTTPClient()}
}

type owmCurrentResponse struct {
	Cod     statusCode  `json:"cod"`
	Message string      `json:"message"`
	Name    string      `json:"name"`
	Coord   Coordinates `json:"coord"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility int   `json:"visibility"`
	Dt         int64 `json:"dt"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int `json:"timezone"`
}

// Fetch retrieves current conditions for city. The body is decoded whatever
// the transport status, because the provider reports rejections through the
// embedded "cod" field; a non-200 code yields an *UpstreamError.
func (c *CurrentClient) Fetch(ctx context.Context, city string) (*Current, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating current conditions request for %s: %w", city, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("current conditions for %s: GET %s: %w", city, redact(req.URL), stripURL(err))
	}
	defer resp.Body.Close()

	var raw owmCurrentResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding current conditions for %s: %w", city, err)
	}

	code := int(raw.Cod)
	if code == 0 {
		code = resp.StatusCode
	}
	if code != http.StatusOK {
		msg := raw.Message
		if msg == "" {
			msg = notFoundMessage
		}
		return nil, &UpstreamError{Code: code, Message: msg}
	}

	cur := &Current{
		City:           raw.Name,
		Country:        raw.Sys.Country,
		Coord:          raw.Coord,
		Temperature:    raw.Main.Temp,
		FeelsLike:      raw.Main.FeelsLike,
		Humidity:       raw.Main.Humidity,
		Pressure:       raw.Main.Pressure,
		WindSpeed:      raw.Wind.Speed,
		VisibilityM:    raw.Visibility,
		Clouds:         raw.Clouds.All,
		TimezoneOffset: raw.Timezone,
		Observed:       raw.Dt,
		Sunrise:        raw.Sys.Sunrise,
		Sunset:         raw.Sys.Sunset,
	}
	if len(raw.Weather) > 0 {
		cur.Description = raw.Weather[0].Description
		cur.Icon = raw.Weather[0].Icon
	}

	return cur, nil
}

// ---- forecast ----

// ForecastClient fetches the 5-day / 3-hour forecast by city name.
type ForecastClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewForecastClientWithURL constructs a ForecastClient pointing at a custom base URL.
func NewForecastClientWithURL(baseURL, apiKey string) *ForecastClient {
	return &ForecastClient{apiKey: apiKey, baseURL: baseURL, client: newHTTPClient()}
}

type owmForecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		DtTxt string `json:"dt_txt"`
	} `json:"list"`
}

// Fetch retrieves the forecast series for city, preserving provider order.
func (c *ForecastClient) Fetch(ctx context.Context, city string) (*Forecast, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	var raw owmForecastResponse
	if err := doGet(ctx, c.client, c.baseURL+"/forecast?"+params.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("forecast fetch for %s: %w", city, err)
	}

	entries := make([]ForecastEntry, 0, len(raw.List))
	for _, item := range raw.List {
		e := ForecastEntry{
			Time:        item.Dt,
			TimeText:    item.DtTxt,
			Temperature: item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			e.Description = item.Weather[0].Description
			e.Icon = item.Weather[0].Icon
		}
		entries = append(entries, e)
	}

	return &Forecast{Entries: entries}, nil
}

// ---- air quality ----

// AirQualityClient fetches air pollution data by coordinates.
type AirQualityClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAirQualityClientWithURL constructs an AirQualityClient pointing at a custom base URL.
func NewAirQualityClientWithURL(baseURL, apiKey string) *AirQualityClient {
	return &AirQualityClient{apiKey: apiKey, baseURL: baseURL, client: newHTTPClient()}
}

type owmAirResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
	} `json:"list"`
}

// Fetch retrieves air quality readings at the given coordinates.
func (c *AirQualityClient) Fetch(ctx context.Context, coord Coordinates) (*AirQuality, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	params.Set("appid", c.apiKey)

	var raw owmAirResponse
	if err := doGet(ctx, c.client, c.baseURL+"/air_pollution?"+params.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("air quality fetch for %f,%f: %w", coord.Lat, coord.Lon, err)
	}

	readings := make([]AirReading, 0, len(raw.List))
	for _, item := range raw.List {
		readings = append(readings, AirReading{Index: item.Main.AQI, Time: item.Dt})
	}

	return &AirQuality{Readings: readings}, nil
}
