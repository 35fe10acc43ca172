package auth

import (
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/database/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OTPReaper removes codes past their validity window
type OTPReaper interface {
	ReapExpired() (int64, error)
}

// TokenCleanupService periodically deletes expired and revoked refresh tokens and,
// when a reaper is set, expired OTP rows. Expiry checks on read do not depend on it.
type TokenCleanupService struct {
	refreshTokenRepo *repository.RefreshTokenRepository
	otpReaper        OTPReaper
	interval         time.Duration
	stopChan         chan bool
}

func NewTokenCleanupService(db *gorm.DB, interval time.Duration, otpReaper OTPReaper) *TokenCleanupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &TokenCleanupService{
		refreshTokenRepo: repository.NewRefreshTokenRepository(db),
		otpReaper:        otpReaper,
		interval:         interval,
		stopChan:         make(chan bool),
	}
}

// Start starts the token cleanup service
func (s *TokenCleanupService) Start() {
	go s.run()
	logrus.Info("Token cleanup service started")
}

// Stop stops the token cleanup service
func (s *TokenCleanupService) Stop() {
	s.stopChan <- true
	logrus.Info("Token cleanup service stopped")
}

func (s *TokenCleanupService) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *TokenCleanupService) cleanup() {
	removed, err := s.refreshTokenRepo.Cleanup(time.Now())
	if err != nil {
		logrus.Errorf("Failed to cleanup tokens: %v", err)
	} else {
		logrus.Infof("Token cleanup completed, %d tokens removed", removed)
	}

	if s.otpReaper == nil {
		return
	}
	reaped, err := s.otpReaper.ReapExpired()
	if err != nil {
		logrus.Errorf("Failed to reap expired OTPs: %v", err)
		return
	}
	logrus.Infof("Reaped %d expired OTPs", reaped)
}
