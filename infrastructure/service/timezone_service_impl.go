package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

// TimezoneServiceImpl implements the TimezoneService interface
type TimezoneServiceImpl struct {
	config       *config.AppConfig
	logger       domain.Logger
	locationMu   sync.RWMutex
	userLocation *time.Location
	detectionMu  sync.Mutex
	detected     bool
	now          func() time.Time
}

// NewTimezoneServiceImpl creates a new instance of TimezoneServiceImpl
func NewTimezoneServiceImpl(config *config.AppConfig, logger domain.Logger) *TimezoneServiceImpl {
	return &TimezoneServiceImpl{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// GetUserTimezone returns the user's local timezone
func (s *TimezoneServiceImpl) GetUserTimezone() (*time.Location, error) {
	s.locationMu.RLock()
	if s.userLocation != nil {
		s.locationMu.RUnlock()
		return s.userLocation, nil
	}
	s.locationMu.RUnlock()

	return s.detectSystemTimezone()
}

// GetConfiguredTimezone returns update.timezone when set, otherwise the system timezone
func (s *TimezoneServiceImpl) GetConfiguredTimezone() (*time.Location, error) {
	name := s.configuredName()
	if name == "" {
		return s.GetUserTimezone()
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.Warn(context.Background(), "Configured timezone is invalid, using system timezone",
			domain.NewField("timezone", name),
			domain.NewField("error", err.Error()))
		sys, sysErr := s.GetUserTimezone()
		if sysErr != nil {
			return sys, sysErr
		}
		return sys, domain.ErrTimezoneParse(name, err)
	}
	return loc, nil
}

func (s *TimezoneServiceImpl) configuredName() string {
	if s.config == nil || s.config.Update == nil {
		return ""
	}
	return s.config.Update.Timezone
}

// ConvertToUserTime converts a time to the configured timezone
func (s *TimezoneServiceImpl) ConvertToUserTime(t time.Time) time.Time {
	loc, err := s.GetConfiguredTimezone()
	if loc == nil {
		s.logger.Warn(context.Background(), "Failed to get user timezone, using UTC",
			domain.NewField("error", fmt.Sprint(err)))
		return t.UTC()
	}
	return t.In(loc)
}

// FormatTimeForUser formats time according to the configured timezone
func (s *TimezoneServiceImpl) FormatTimeForUser(t time.Time, layout string) string {
	return s.ConvertToUserTime(t).Format(layout)
}

// GetTimezoneInfo returns timezone information for logging/metrics
func (s *TimezoneServiceImpl) GetTimezoneInfo() repository.TimezoneInfo {
	loc, err := s.GetConfiguredTimezone()
	if loc == nil || (err != nil && s.configuredName() == "") {
		// Return UTC info if timezone detection fails
		return repository.TimezoneInfo{
			Name:            "UTC",
			Offset:          "+00:00",
			DetectionMethod: "fallback",
		}
	}

	method := "system"
	if s.configuredName() != "" && err == nil {
		method = "config"
	}

	now := s.now().In(loc)
	_, offset := now.Zone()

	return repository.TimezoneInfo{
		Name:            loc.String(),
		Offset:          formatOffset(offset),
		OffsetSeconds:   offset,
		IsDST:           now.IsDST(),
		DetectionMethod: method,
	}
}

// formatOffset formats seconds east of UTC as +HH:MM or -HH:MM
func formatOffset(offset int) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}

// detectSystemTimezone detects the system timezone
func (s *TimezoneServiceImpl) detectSystemTimezone() (*time.Location, error) {
	s.detectionMu.Lock()
	defer s.detectionMu.Unlock()

	s.locationMu.RLock()
	if s.detected && s.userLocation != nil {
		s.locationMu.RUnlock()
		return s.userLocation, nil
	}
	s.locationMu.RUnlock()

	// Method 1: TZ environment variable
	if tzEnv := os.Getenv("TZ"); tzEnv != "" {
		loc, err := time.LoadLocation(tzEnv)
		if err == nil {
			s.logger.Debug(context.Background(), "Detected timezone from TZ environment variable",
				domain.NewField("timezone", loc.String()))
			s.setUserLocation(loc)
			return loc, nil
		}
		s.logger.Warn(context.Background(), "Failed to load timezone from TZ environment variable",
			domain.NewField("TZ", tzEnv),
			domain.NewField("error", err.Error()))
	}

	// Method 2: /etc/localtime symlink (macOS and most Linux distributions)
	if linkPath, err := os.Readlink("/etc/localtime"); err == nil {
		parts := strings.Split(linkPath, "/zoneinfo/")
		if len(parts) > 1 {
			if loc, err := time.LoadLocation(parts[1]); err == nil {
				s.logger.Debug(context.Background(), "Detected timezone from /etc/localtime",
					domain.NewField("timezone", loc.String()))
				s.setUserLocation(loc)
				return loc, nil
			}
		}
	}

	// Method 3: time.Local still carries the correct rules even when unnamed
	if time.Local != nil {
		s.logger.Debug(context.Background(), "Using time.Local as timezone",
			domain.NewField("timezone", time.Local.String()))
		s.setUserLocation(time.Local)
		return time.Local, nil
	}

	s.logger.Warn(context.Background(), "Failed to detect system timezone, using UTC as fallback")
	s.setUserLocation(time.UTC)
	return time.UTC, domain.ErrTimezone("detect", "fell back to UTC")
}

// setUserLocation sets the user location with proper locking
func (s *TimezoneServiceImpl) setUserLocation(loc *time.Location) {
	s.locationMu.Lock()
	defer s.locationMu.Unlock()
	s.userLocation = loc
	s.detected = true
}
