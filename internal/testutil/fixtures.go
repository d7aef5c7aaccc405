package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dom/chess-web/internal/domain"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	displayName string
	password    string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		displayName: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password:    "testpassword123",
	}
}

// WithDisplayName sets the display name
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		DisplayName:  b.displayName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
}

// BuildAndAuthenticate creates a user via API and returns the user and access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	reqBody := map[string]string{
		"displayName": b.displayName,
		"password":    b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, _ := uuid.Parse(authResp.User.ID)
	user := &domain.User{
		ID:          userID,
		DisplayName: authResp.User.DisplayName,
	}

	return user, authResp.AccessToken
}

// GameBuilder creates test games with a builder pattern
type GameBuilder struct {
	creator      *domain.User
	creatorColor domain.Color
	opponent     *domain.User
	fen          string
}

// NewGameBuilder creates a new GameBuilder with default values
func NewGameBuilder() *GameBuilder {
	return &GameBuilder{
		creatorColor: domain.ColorWhite,
		fen:          domain.StartFEN,
	}
}

// WithCreator sets the game creator
func (b *GameBuilder) WithCreator(user *domain.User) *GameBuilder {
	b.creator = user
	return b
}

// WithCreatorColor sets the color the creator occupies
func (b *GameBuilder) WithCreatorColor(color domain.Color) *GameBuilder {
	b.creatorColor = color
	return b
}

// WithOpponent seats a second player, which also activates the game
func (b *GameBuilder) WithOpponent(user *domain.User) *GameBuilder {
	b.opponent = user
	return b
}

// WithFEN sets the starting position
func (b *GameBuilder) WithFEN(fen string) *GameBuilder {
	b.fen = fen
	return b
}

// Build creates the game and its seats in the database
func (b *GameBuilder) Build(t *testing.T, db *gorm.DB) *domain.Game {
	t.Helper()

	if b.creator == nil {
		user, _ := NewUserBuilder().Build(t, db)
		b.creator = user
	}

	// Side to move is the second FEN field.
	turn := domain.ColorWhite
	if fields := strings.Fields(b.fen); len(fields) > 1 && fields[1] == "b" {
		turn = domain.ColorBlack
	}

	game := &domain.Game{
		ID:           uuid.New(),
		CreatedBy:    b.creator.ID,
		CreatorColor: b.creatorColor,
		Status:       domain.GameStatusWaiting,
		CurrentFEN:   b.fen,
		CurrentTurn:  turn,
		CreatedAt:    time.Now(),
	}

	if b.creatorColor == domain.ColorWhite {
		game.WhiteUserID = &b.creator.ID
	} else {
		game.BlackUserID = &b.creator.ID
	}

	if b.opponent != nil {
		if b.creatorColor == domain.ColorWhite {
			game.BlackUserID = &b.opponent.ID
		} else {
			game.WhiteUserID = &b.opponent.ID
		}
		game.Status = domain.GameStatusActive
	}

	if err := db.Create(game).Error; err != nil {
		t.Fatalf("failed to create game: %v", err)
	}

	creatorSeat := &domain.GamePlayer{
		ID:       uuid.New(),
		GameID:   game.ID,
		UserID:   b.creator.ID,
		Color:    b.creatorColor,
		JoinedAt: time.Now(),
	}
	if err := db.Create(creatorSeat).Error; err != nil {
		t.Fatalf("failed to create creator seat: %v", err)
	}

	if b.opponent != nil {
		opponentSeat := &domain.GamePlayer{
			ID:       uuid.New(),
			GameID:   game.ID,
			UserID:   b.opponent.ID,
			Color:    b.creatorColor.Opposite(),
			JoinedAt: time.Now(),
		}
		if err := db.Create(opponentSeat).Error; err != nil {
			t.Fatalf("failed to create opponent seat: %v", err)
		}
	}

	return game
}

// GameAPIResponse matches the game fields the tests care about
type GameAPIResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CurrentFEN  string `json:"currentFen"`
	CurrentTurn string `json:"currentTurn"`
	MoveCount   int    `json:"moveCount"`
	Outcome     string `json:"outcome"`
}

// CreateGameAPI creates a game through the HTTP API and returns the response
func CreateGameAPI(t *testing.T, ts *TestServer, token, color string) *GameAPIResponse {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"color": color})
	req, _ := http.NewRequest(http.MethodPost, ts.APIURL("/games"), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code creating game: %d", resp.StatusCode)
	}

	var gameResp GameAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&gameResp); err != nil {
		t.Fatalf("failed to decode game response: %v", err)
	}

	return &gameResp
}

// JoinGameAPI joins a game through the HTTP API and returns the raw response
func JoinGameAPI(t *testing.T, ts *TestServer, token, gameID, color string) *http.Response {
	t.Helper()

	payload := map[string]string{}
	if color != "" {
		payload["color"] = color
	}
	body, _ := json.Marshal(payload)

	req, _ := http.NewRequest(http.MethodPost, ts.APIURL("/games/"+gameID+"/join"), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to join game: %v", err)
	}

	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
