package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
)

const component = "sheets"

// valuesAPI описывает часть Sheets API, которой пользуется клиент.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
}

// Options задаёт таблицу и её разметку.
type Options struct {
	SpreadsheetID string
	Range         string
	NameHeader    string
	CountHeader   string
	CacheTTL      time.Duration
}

// Client читает и изменяет таблицу с палками через Google Sheets API.
type Client struct {
	api   valuesAPI
	cache domain.SnapshotCache
	opts  Options
	log   zerolog.Logger
	now   func() time.Time
}

// NewService создаёт клиент Sheets API по файлу сервисного аккаунта.
func NewService(ctx context.Context, credentialsFile string) (*gsheets.Service, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Google Sheets: %w", err)
	}
	return svc, nil
}

// New создаёт клиент таблицы поверх Sheets API.
func New(svc *gsheets.Service, cache domain.SnapshotCache, opts Options, log zerolog.Logger) *Client {
	return newClient(serviceValues{svc: svc}, cache, opts, log)
}

func newClient(api valuesAPI, cache domain.SnapshotCache, opts Options, log zerolog.Logger) *Client {
	if opts.Range == "" {
		opts.Range = "A:B"
	}
	return &Client{
		api:   api,
		cache: cache,
		opts:  opts,
		log:   log.With().Str("component", component).Logger(),
		now:   time.Now,
	}
}

// FetchSnapshot возвращает текущие строки таблицы. При useCache свежий кэш отдаётся
// без запроса, а при ошибке чтения используется последний сохранённый снимок.
// Без useCache кэш сначала очищается.
func (c *Client) FetchSnapshot(ctx context.Context, useCache bool) (domain.Snapshot, error) {
	if !useCache {
		c.clearCache(ctx)
	} else if snap, fetchedAt, ok := c.cached(ctx); ok && c.now().Sub(fetchedAt) < c.opts.CacheTTL {
		c.log.Debug().Msg("данные из кэша")
		return snap, nil
	}

	rows, err := c.api.Get(ctx, c.opts.SpreadsheetID, c.opts.Range)
	var snap domain.Snapshot
	if err == nil {
		snap, err = parseSnapshot(rows, c.opts.NameHeader, c.opts.CountHeader)
	}
	if err != nil {
		c.log.Error().Err(err).Msg("ошибка при получении данных из таблицы")
		if stale, _, ok := c.cached(ctx); ok {
			c.log.Warn().Msg("возвращаем последние известные данные из кэша")
			return stale, nil
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}

	if err := c.cache.Set(ctx, snap, c.now()); err != nil {
		c.log.Warn().Err(err).Msg("не удалось сохранить снимок в кэш")
	}
	c.log.Debug().Int("rows", len(snap)).Msg("получены новые данные из таблицы")
	return snap, nil
}

// FindByName ищет участника без учёта регистра и пробелов по краям.
func (c *Client) FindByName(ctx context.Context, name string) (domain.Record, error) {
	rows, err := c.api.Get(ctx, c.opts.SpreadsheetID, c.opts.Range)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	layout, err := findLayout(rows, c.opts.NameHeader, c.opts.CountHeader)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	idx := layout.findRow(rows, name)
	if idx < 0 {
		return domain.Record{}, fmt.Errorf("%q: %w", name, domain.ErrNotFound)
	}
	return layout.record(rows[idx]), nil
}

// UpdateCount записывает новое количество палок участнику и сбрасывает кэш.
func (c *Client) UpdateCount(ctx context.Context, name string, count int) error {
	rows, err := c.api.Get(ctx, c.opts.SpreadsheetID, c.opts.Range)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	layout, err := findLayout(rows, c.opts.NameHeader, c.opts.CountHeader)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	idx := layout.findRow(rows, name)
	if idx < 0 {
		return fmt.Errorf("%q: %w", name, domain.ErrNotFound)
	}

	cell, err := cellRef(c.opts.Range, layout.count, idx)
	if err != nil {
		return err
	}
	if err := c.api.Update(ctx, c.opts.SpreadsheetID, cell, [][]interface{}{{count}}); err != nil {
		if isPermissionError(err) {
			return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
		}
		return fmt.Errorf("запись %s: %w", cell, err)
	}

	c.clearCache(ctx)
	c.log.Info().Str("name", name).Int("count", count).Str("cell", cell).Msg("обновлено количество палок")
	return nil
}

func (c *Client) cached(ctx context.Context) (domain.Snapshot, time.Time, bool) {
	snap, fetchedAt, ok, err := c.cache.Get(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("ошибка чтения кэша")
		return nil, time.Time{}, false
	}
	return snap, fetchedAt, ok
}

func (c *Client) clearCache(ctx context.Context) {
	if err := c.cache.Clear(ctx); err != nil {
		c.log.Warn().Err(err).Msg("ошибка очистки кэша")
	}
}

func isPermissionError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission")
}

// serviceValues адаптирует *sheets.Service к valuesAPI.
type serviceValues struct {
	svc *gsheets.Service
}

func (s serviceValues) Get(ctx context.Context, spreadsheetID, readRange string) (rows [][]interface{}, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest(component, "values_get", readRange, start, err)
	}()

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest(component, "values_update", writeRange, start, err)
	}()

	_, err = s.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
