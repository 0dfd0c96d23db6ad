package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
)

// DefaultURL — адрес публичного QuickChart.
const DefaultURL = "https://quickchart.io/chart"

var baseColors = []string{
	"rgba(54, 162, 235, 0.7)",
	"rgba(255, 99, 132, 0.7)",
	"rgba(75, 192, 192, 0.7)",
	"rgba(255, 159, 64, 0.7)",
	"rgba(153, 102, 255, 0.7)",
	"rgba(255, 205, 86, 0.7)",
	"rgba(201, 203, 207, 0.7)",
	"rgba(162, 235, 177, 0.7)",
	"rgba(255, 99, 172, 0.7)",
	"rgba(75, 142, 192, 0.7)",
}

const goldenRatio = 0.618033988749895

// QuickChart рисует диаграммы через HTTP API QuickChart.
type QuickChart struct {
	url        string
	width      int
	height     int
	httpClient *http.Client
}

type Option func(*QuickChart)

func WithHTTPClient(client *http.Client) Option {
	return func(q *QuickChart) {
		if client != nil {
			q.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(q *QuickChart) {
		if q.httpClient == nil {
			q.httpClient = &http.Client{}
		}
		q.httpClient.Timeout = timeout
	}
}

func WithSize(width, height int) Option {
	return func(q *QuickChart) {
		if width > 0 {
			q.width = width
		}
		if height > 0 {
			q.height = height
		}
	}
}

// New создаёт клиент QuickChart. Пустой url заменяется на DefaultURL.
func New(url string, opts ...Option) *QuickChart {
	if url == "" {
		url = DefaultURL
	}
	q := &QuickChart{
		url:        url,
		width:      800,
		height:     400,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

type renderRequest struct {
	Chart           chartConfig `json:"chart"`
	Width           int         `json:"width"`
	Height          int         `json:"height"`
	BackgroundColor string      `json:"backgroundColor"`
	Format          string      `json:"format"`
	Version         string      `json:"version"`
}

type chartConfig struct {
	Type    string         `json:"type"`
	Data    chartData      `json:"data"`
	Options map[string]any `json:"options"`
}

type chartData struct {
	Labels   []string  `json:"labels"`
	Datasets []dataset `json:"datasets"`
}

type dataset struct {
	Label           string   `json:"label"`
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
	BorderColor     string   `json:"borderColor"`
	BorderWidth     int      `json:"borderWidth"`
}

// RenderBarChart возвращает PNG со столбчатой диаграммой. Записи рисуются в переданном порядке.
func (q *QuickChart) RenderBarChart(ctx context.Context, records []domain.Record) (image []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest("chart", "render", q.url, start, err)
	}()

	raw, err := json.Marshal(q.buildRequest(records))
	if err != nil {
		return nil, fmt.Errorf("marshal chart: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quickchart request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quickchart status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func (q *QuickChart) buildRequest(records []domain.Record) renderRequest {
	labels := make([]string, len(records))
	values := make([]int, len(records))
	for i, r := range records {
		labels[i] = r.Name
		values[i] = r.Count
	}
	axis := func() map[string]any {
		return map[string]any{
			"border": map[string]any{"display": true},
			"grid":   map[string]any{"drawOnChartArea": false, "display": false},
		}
	}
	y := axis()
	y["beginAtZero"] = true
	y["ticks"] = map[string]any{"precision": 0, "stepSize": 1}

	return renderRequest{
		Chart: chartConfig{
			Type: "bar",
			Data: chartData{
				Labels: labels,
				Datasets: []dataset{{
					Label:           "Количество палок",
					Data:            values,
					BackgroundColor: Colors(len(records)),
					BorderColor:     "rgba(0, 0, 0, 0.3)",
					BorderWidth:     1,
				}},
			},
			Options: map[string]any{
				"plugins": map[string]any{
					"legend": map[string]any{"display": false},
					"title": map[string]any{
						"display": true,
						"text":    "Статистика палочников",
						"font":    map[string]any{"size": 16},
					},
				},
				"scales": map[string]any{"y": y, "x": axis()},
			},
		},
		Width:           q.width,
		Height:          q.height,
		BackgroundColor: "white",
		Format:          "png",
		Version:         "4",
	}
}

// Colors возвращает count цветов столбцов: сначала фиксированная палитра,
// дальше оттенки с шагом золотого сечения.
func Colors(count int) []string {
	if count <= len(baseColors) {
		return append([]string(nil), baseColors[:count]...)
	}
	colors := append(make([]string, 0, count), baseColors...)
	hue := 0.0
	for i := len(baseColors); i < count; i++ {
		hue = math.Mod(hue+goldenRatio, 1)
		colors = append(colors, fmt.Sprintf("hsla(%.0f, 70%%, 60%%, 0.7)", hue*360))
	}
	return colors
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
