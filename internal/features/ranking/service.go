package ranking

import (
	"context"
	"fmt"
	"strings"

	"serotonyl.ru/shop-bot/internal/common"
)

// Лимит строк в любом рейтинге
const topLimit = 10

// Ranks — что сервису нужно от репозитория.
type Ranks interface {
	TopProductsThisMonth(ctx context.Context, limit int) ([]*ProductRank, error)
	TopRechargers(ctx context.Context, limit int) ([]*UserRank, error)
	Richest(ctx context.Context, limit int) ([]*UserRank, error)
	TopBuyers(ctx context.Context, limit int) ([]*BuyerRank, error)
}

// Service форматирует рейтинги в готовый текст сообщений.
type Service struct {
	ranks Ranks
}

// NewService создаёт сервис рейтингов.
func NewService(ranks Ranks) *Service {
	return &Service{ranks: ranks}
}

// ProductsText — топ товаров месяца.
func (s *Service) ProductsText(ctx context.Context) (string, error) {
	top, err := s.ranks.TopProductsThisMonth(ctx, topLimit)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "🏆 Топ товаров месяца\n\nВ этом месяце ещё не было продаж", nil
	}

	var sb strings.Builder
	sb.WriteString("🏆 Топ товаров месяца\n\n")
	for i, p := range top {
		sb.WriteString(fmt.Sprintf("%s %s — %d шт.\n", medal(i), p.Name, p.Sales))
	}
	return sb.String(), nil
}

// RechargersText — топ по сумме пополнений за месяц.
func (s *Service) RechargersText(ctx context.Context) (string, error) {
	top, err := s.ranks.TopRechargers(ctx, topLimit)
	if err != nil {
		return "", err
	}
	return usersText("💰 Топ пополнений месяца", top), nil
}

// RichestText — топ по балансу.
func (s *Service) RichestText(ctx context.Context) (string, error) {
	top, err := s.ranks.Richest(ctx, topLimit)
	if err != nil {
		return "", err
	}
	return usersText("🏦 Топ балансов", top), nil
}

// BuyersText — топ по числу покупок за месяц.
func (s *Service) BuyersText(ctx context.Context) (string, error) {
	top, err := s.ranks.TopBuyers(ctx, topLimit)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "🛍️ Топ покупателей месяца\n\nПока пусто", nil
	}

	var sb strings.Builder
	sb.WriteString("🛍️ Топ покупателей месяца\n\n")
	for i, b := range top {
		sb.WriteString(fmt.Sprintf("%s %s — %d %s\n",
			medal(i), displayName(b.Username, b.UserID), b.Orders, common.PluralizeOrders(b.Orders)))
	}
	return sb.String(), nil
}

func usersText(title string, top []*UserRank) string {
	if len(top) == 0 {
		return title + "\n\nПока пусто"
	}
	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for i, u := range top {
		sb.WriteString(fmt.Sprintf("%s %s — %s\n",
			medal(i), displayName(u.Username, u.UserID), common.FormatMoney(u.Amount)))
	}
	return sb.String()
}

func medal(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", i+1)
	}
}

// Юзернейм показываем как есть, без него — обезличенный ID.
func displayName(username string, userID int64) string {
	if username != "" {
		return "@" + username
	}
	return fmt.Sprintf("ID%d", userID)
}
