package services

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
)

const testPassword = "secret123"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// codeSeq returns a generator cycling through fixed codes
func codeSeq(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []OTPMessage
	err  error
}

func (n *recordingNotifier) SendOTP(msg OTPMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

// nth waits for the delivery worker to hand over the n-th message (1-based)
func (n *recordingNotifier) nth(t *testing.T, i int) OTPMessage {
	t.Helper()
	require.Eventually(t, func() bool { return n.count() >= i }, 2*time.Second, 5*time.Millisecond)
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msgs[i-1]
}

// startOTP runs the delivery worker for the duration of the test
func startOTP(t *testing.T, svc *OTPService) {
	t.Helper()
	svc.Start()
	t.Cleanup(svc.Stop)
}

// blockingNotifier holds every delivery until release is closed
type blockingNotifier struct {
	release chan struct{}
	sent    chan OTPMessage
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{release: make(chan struct{}), sent: make(chan OTPMessage, 8)}
}

func (n *blockingNotifier) SendOTP(msg OTPMessage) error {
	<-n.release
	n.sent <- msg
	return nil
}

func assertNoDelivery(t *testing.T, n *blockingNotifier) {
	t.Helper()
	select {
	case msg := <-n.sent:
		assert.Fail(t, "unexpected delivery", "code for %s was delivered", msg.Contact)
	default:
	}
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role, createdBy *string, locationID *uint) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	email := username + "@example.com"
	user := &models.User{
		Username:      username,
		Email:         &email,
		PasswordHash:  string(hash),
		Role:          role,
		CreatedByID:   createdBy,
		LocationID:    locationID,
		IsActive:      true,
		IsVerified:    true,
		IsPasswordSet: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createLocation(t *testing.T, db *gorm.DB, name string) *models.Location {
	t.Helper()
	location := &models.Location{Name: name}
	require.NoError(t, db.Create(location).Error)
	return location
}

// createCatalog creates a product group with 2.5% SGST and CGST and one sub-group
func createCatalog(t *testing.T, db *gorm.DB, name string) (*models.ProductGroup, *models.ProductSubGroup) {
	t.Helper()
	group := &models.ProductGroup{
		Name:     name,
		HSNCode:  "6109",
		SGSTRate: decimal.RequireFromString("2.5"),
		CGSTRate: decimal.RequireFromString("2.5"),
		IGSTRate: decimal.Zero,
	}
	require.NoError(t, db.Create(group).Error)
	sub := &models.ProductSubGroup{GroupID: group.ID, Name: name + " M"}
	require.NoError(t, db.Create(sub).Error)
	return group, sub
}

func actorOf(u *models.User) policy.Actor {
	return policy.ActorFromUser(u)
}

func uintPtr(v uint) *uint {
	return &v
}
