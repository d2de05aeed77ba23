package main

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if len(cfg.AdminIDs) == 0 {
		logger.Warn("ADMIN_IDS is not set; only users flagged in the database can manage events")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("telegram auth failed", zap.Error(err))
	}
	logger.Info("authorized", zap.String("account", api.Self.UserName))

	db, err := OpenDatabase(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	repo := NewSQLiteRepository(db)
	if err := repo.CreateTables(ctx); err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	engine := NewFormEngine(NewMemoryStateStore(), repo, logger)
	guard := NewRegistrationGuard(repo, logger)
	bot := NewBot(api, cfg, repo, engine, guard, logger)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		logger.Fatal("get updates failed", zap.Error(err))
	}

	logger.Info("bot started")
	// Updates are handled one at a time: this serializes each user's
	// operations, which the form engine requires.
	for update := range updates {
		bot.HandleUpdate(ctx, update)
	}
}
