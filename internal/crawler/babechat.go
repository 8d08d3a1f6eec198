package crawler

import (
	"time"

	"charmon/internal/model"
)

// babechatAdapter is a declared capability gap: Babechat renders its ranking
// client-side, so a plain HTTP crawl sees no cards. The adapter reports
// itself unsupported and deterministically returns an empty list, so callers
// never have to catch an error to detect the limitation.
type babechatAdapter struct{}

func (babechatAdapter) Name() string       { return "babechat" }
func (babechatAdapter) Supported() bool    { return false }
func (babechatAdapter) RankingURL() string { return "https://babechat.ai" }

func (babechatAdapter) ParseRankings([]byte, int, time.Time) []model.CharacterCard {
	return nil
}
