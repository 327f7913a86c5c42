package mylog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"tutorbot/app/config"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// TelegramKey tags a record that must reach the telegram handler regardless of its level.
const TelegramKey = "telegram"

func Preinit() {
	slog.SetDefault(slog.New(consoleHandler(slog.LevelDebug)))
}

func Init(cfg *config.Config) error {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	router := slogmulti.Router().Add(consoleHandler(level))

	if cfg.Log.Telegram.Token != "" {
		telegramLevel, err := parseLevel(cfg.Log.Telegram.Level)
		if err != nil {
			return err
		}

		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelDebug,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),
			telegramFilter(telegramLevel),
		)
	}

	logger := slog.New(router.Handler()).With("app", "tutorbot")
	slog.SetDefault(logger)

	return nil
}

func consoleHandler(level slog.Level) slog.Handler {
	return console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     level,
	})
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	return level, nil
}

// telegramFilter lets through records at minLevel and above plus records tagged with TelegramKey.
func telegramFilter(minLevel slog.Level) func(ctx context.Context, r slog.Record) bool {
	return func(_ context.Context, r slog.Record) bool {
		if r.Level >= minLevel {
			return true
		}

		tagged := false
		r.Attrs(func(attr slog.Attr) bool {
			if attr.Key == TelegramKey {
				tagged = true
				return false
			}

			return true
		})

		return tagged
	}
}
