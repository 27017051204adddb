// Command scansim replays fingerprint scans against the attendance backend.
// Each stdin line is "fingerprintId deviceId [RFC3339 timestamp]"; the first
// scan seen for a device marks that device online.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"attendance-portal/internal/api"
	"attendance-portal/internal/config"
	"attendance-portal/internal/logger"
)

func main() {
	cfg := config.Load()
	baseURL := flag.String("api", cfg.APIBaseURL, "backend API base URL")
	email := flag.String("email", os.Getenv("SCANSIM_EMAIL"), "operator account email")
	password := flag.String("password", os.Getenv("SCANSIM_PASSWORD"), "operator account password")
	interval := flag.Duration("interval", 0, "delay between scans")
	flag.Parse()

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.New(*baseURL, cfg.APITimeout, api.WithLogger(logger.Component(zlog, "api")))
	res, err := client.Login(ctx, api.Credentials{Email: *email, Password: *password})
	if err != nil {
		zlog.Fatal("operator login failed", zap.Error(err))
	}
	zlog.Info("logged in", zap.String("user", res.User.Email), zap.String("role", string(res.User.Role)))

	sim := &simulator{
		backend:  client.WithSession("", res.Token),
		log:      zlog,
		interval: *interval,
		seen:     make(map[string]bool),
	}
	st, err := sim.replay(ctx, os.Stdin)
	zlog.Info("replay finished", zap.Int("accepted", st.accepted), zap.Int("rejected", st.rejected), zap.Int("skipped", st.skipped))
	if err != nil && ctx.Err() == nil {
		zlog.Fatal("replay stopped", zap.Error(err))
	}
}

// scanBackend is the part of the API client the simulator drives.
type scanBackend interface {
	UpdateDeviceStatus(ctx context.Context, deviceID string, st api.DeviceStatus) error
	ProcessScan(ctx context.Context, in api.ScanInput) (api.MarkResult, error)
}

type simulator struct {
	backend  scanBackend
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	seen     map[string]bool
}

type stats struct {
	accepted int
	rejected int
	skipped  int
}

// replay submits every scan line read from r. Malformed lines and rejected
// scans are logged and counted; an expired operator token stops the replay.
func (s *simulator) replay(ctx context.Context, r io.Reader) (stats, error) {
	var st stats
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		in, err := parseScan(line)
		if err != nil {
			s.log.Warn("skipping line", zap.Int("line", lineNo), zap.Error(err))
			st.skipped++
			continue
		}
		if err := s.online(ctx, in.DeviceID); err != nil {
			return st, err
		}
		res, err := s.backend.ProcessScan(ctx, in)
		if err != nil {
			if api.IsUnauthorized(err) || ctx.Err() != nil {
				return st, err
			}
			s.log.Warn("scan rejected", zap.Int("line", lineNo), zap.Int("fingerprint", in.FingerprintID), zap.String("notice", api.Notice(err)))
			st.rejected++
			continue
		}
		st.accepted++
		fields := []zap.Field{zap.Int("fingerprint", in.FingerprintID), zap.String("device", in.DeviceID), zap.String("action", res.Action), zap.String("session", res.Session)}
		if res.Student != nil {
			fields = append(fields, zap.String("student", res.Student.StudentID))
		}
		s.log.Info("scan recorded", fields...)

		if s.interval > 0 {
			select {
			case <-ctx.Done():
				return st, ctx.Err()
			case <-time.After(s.interval):
			}
		}
	}
	return st, sc.Err()
}

func (s *simulator) online(ctx context.Context, deviceID string) error {
	if s.seen[deviceID] {
		return nil
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	seenAt := now().UTC()
	err := s.backend.UpdateDeviceStatus(ctx, deviceID, api.DeviceStatus{IsOnline: true, LastSeen: &seenAt})
	if err != nil {
		if api.IsUnauthorized(err) || ctx.Err() != nil {
			return err
		}
		s.log.Warn("mark device online failed", zap.String("device", deviceID), zap.String("notice", api.Notice(err)))
	}
	s.seen[deviceID] = true
	return nil
}

func parseScan(line string) (api.ScanInput, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 || len(parts) > 3 {
		return api.ScanInput{}, fmt.Errorf("want \"fingerprintId deviceId [timestamp]\", got %d fields", len(parts))
	}
	fp, err := strconv.Atoi(parts[0])
	if err != nil || fp < 0 {
		return api.ScanInput{}, fmt.Errorf("invalid fingerprint id %q", parts[0])
	}
	in := api.ScanInput{FingerprintID: fp, DeviceID: parts[1]}
	if len(parts) == 3 {
		ts, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			return api.ScanInput{}, fmt.Errorf("invalid timestamp %q: %w", parts[2], err)
		}
		in.Timestamp = &ts
	}
	return in, nil
}
