package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"audit-analytics/internal/audit"
	"audit-analytics/internal/backend"
	"audit-analytics/internal/dataset"
	"audit-analytics/internal/stats"

	"github.com/go-playground/validator/v10"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	serverName    = "audit-analytics"
	serverVersion = "0.1.0"
)

// Options configures the tool server. Only Store is required.
type Options struct {
	Store *dataset.Store
	// Source, when set, is used to fetch hotels missing from the store.
	Source   backend.Source
	CacheDir string

	DefaultHotelID string
	Location       *time.Location
	FailureTopN    int
	PairTopN       int
	MermaidCharts  bool
	// DefaultPeriod is used for area analytics when a call names no period.
	DefaultPeriod stats.Period

	// Now replaces the clock, for tests.
	Now func() time.Time
}

// Server exposes the analytics engine as MCP tools.
type Server struct {
	opts     Options
	validate *validator.Validate
}

// NewServer creates a tool server over the given store.
func NewServer(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = dataset.NewStore()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultPeriod == "" {
		opts.DefaultPeriod = stats.DefaultAreaPeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.registerTools(server)
	return server
}

// Serve runs the tool server over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("default_hotel", s.opts.DefaultHotelID).Msg("Serving MCP tools over stdio")
	return s.MCPServer().Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// check runs the struct's validate tags and reports failures as invalid arguments.
func (s *Server) check(args any) error {
	err := s.validate.Struct(args)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		var fields []string
		for _, fe := range ve {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", stats.ErrInvalidArgument, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", stats.ErrInvalidArgument, err)
}

// snapshot returns the hotel's records, fetching and caching them when the store has none.
func (s *Server) snapshot(ctx context.Context, hotelID string) (*audit.Snapshot, error) {
	if hotelID == "" {
		hotelID = s.opts.DefaultHotelID
	}
	if hotelID == "" {
		return nil, fmt.Errorf("%w: hotel_id is required (no DEFAULT_HOTEL_ID configured)", stats.ErrInvalidArgument)
	}
	if err := dataset.ValidateHotelID(hotelID); err != nil {
		return nil, fmt.Errorf("%w: %v", stats.ErrInvalidArgument, err)
	}

	if snap := s.opts.Store.Snapshot(hotelID); snap != nil {
		return snap, nil
	}
	if s.opts.CacheDir != "" {
		if err := s.opts.Store.Load(s.opts.CacheDir, hotelID); err != nil {
			log.Warn().Err(err).Str("hotel_id", hotelID).Msg("Failed to load cached snapshot")
		}
		if snap := s.opts.Store.Snapshot(hotelID); snap != nil {
			return snap, nil
		}
	}
	if s.opts.Source == nil {
		return nil, fmt.Errorf("no data for hotel %s: run `audit-analytics sync` first", hotelID)
	}

	fetched, err := s.opts.Source.Fetch(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hotel %s: %w", hotelID, err)
	}
	s.opts.Store.Replace(fetched)
	if s.opts.CacheDir != "" {
		if err := s.opts.Store.Save(s.opts.CacheDir, hotelID); err != nil {
			log.Warn().Err(err).Str("hotel_id", hotelID).Msg("Failed to cache fetched snapshot")
		}
	}
	return s.opts.Store.Snapshot(hotelID), nil
}

// windowRuns reads the hotel's runs for w from the store and keeps the eligible ones.
func (s *Server) windowRuns(hotelID string, w stats.Window) []audit.Run {
	return stats.FilterEligible(s.opts.Store.RunsInRange(hotelID, w.Start, w.End), w)
}

// loadCachedHotels pulls every hotel cache file not yet in the store.
func (s *Server) loadCachedHotels() {
	if s.opts.CacheDir == "" {
		return
	}
	paths, err := filepath.Glob(filepath.Join(s.opts.CacheDir, "*.jsonl"))
	if err != nil {
		log.Warn().Err(err).Str("path", s.opts.CacheDir).Msg("Failed to list cache directory")
		return
	}
	for _, path := range paths {
		hotelID := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		if s.opts.Store.Count(hotelID) > 0 {
			continue
		}
		if err := s.opts.Store.Load(s.opts.CacheDir, hotelID); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable cache file")
		}
	}
}
