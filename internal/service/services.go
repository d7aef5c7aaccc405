package service

import (
	"github.com/dom/chess-web/internal/config"
	"github.com/dom/chess-web/internal/repository"
)

type Services struct {
	Auth *AuthService
	Game *GameService
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	return &Services{
		Auth: NewAuthService(repos.User, repos.Session, cfg),
		Game: NewGameService(repos.Game, repos.GamePlayer, repos.GameMove),
	}
}
