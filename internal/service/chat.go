package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Strob0t/fanout/internal/domain"
	"github.com/Strob0t/fanout/internal/port/broadcast"
	"github.com/Strob0t/fanout/internal/pubsub"
)

const maxUsernameLen = 64

// ChatService is a single chat room: users join by name and every listener
// of the room is told who joined.
type ChatService struct {
	room   string
	broker broadcast.Broker[string]

	mu     sync.Mutex
	active map[string]struct{}
}

// NewChatService creates a ChatService announcing joins on the given room channel.
func NewChatService(room string, broker broadcast.Broker[string]) *ChatService {
	return &ChatService{
		room:   room,
		broker: broker,
		active: make(map[string]struct{}),
	}
}

// Room returns the channel name joins are published on.
func (s *ChatService) Room() string { return s.room }

// Join marks username as active and announces it to the room. It returns
// false without announcing anything if the name is already taken.
func (s *ChatService) Join(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return false, fmt.Errorf("%w: username too long (max %d chars)", domain.ErrValidation, maxUsernameLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.active[username]; taken {
		return false, nil
	}
	s.active[username] = struct{}{}

	// Published under the lock so listeners see joins in the order they were accepted.
	delivered := s.broker.Publish(s.room, username)
	slog.InfoContext(ctx, "user joined", "room", s.room, "username", username, "listeners", delivered)
	return true, nil
}

// Leave frees username. It reports whether the user was active.
func (s *ChatService) Leave(username string) bool {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[username]; !ok {
		return false
	}
	delete(s.active, username)
	slog.Info("user left", "room", s.room, "username", username)
	return true
}

// ActiveUsers returns the names of active users, sorted.
func (s *ChatService) ActiveUsers() []string {
	s.mu.Lock()
	users := make([]string, 0, len(s.active))
	for u := range s.active {
		users = append(users, u)
	}
	s.mu.Unlock()

	slices.Sort(users)
	return users
}

// Joins calls fn with the name of every user who joins from now on, until
// ctx is done, the room is closed, or fn returns an error.
func (s *ChatService) Joins(ctx context.Context, fn func(username string) error) error {
	return streamChannel(ctx, s.broker, s.room, func(ev pubsub.Event[string]) error {
		return fn(ev.Payload)
	})
}

// Listeners returns how many streams are listening to the room.
func (s *ChatService) Listeners() int {
	return s.broker.Subscribers(s.room)
}

// Close ends every open join stream.
func (s *ChatService) Close() {
	s.broker.Close()
}
