// Package catalog — service.go содержит бизнес-логику витрины:
// листинг, поиск и разбор админского описания товара.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"serotonyl.ru/shop-bot/internal/common"
)

// Service управляет витриной товаров.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис витрины.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// List возвращает активные товары витрины.
func (s *Service) List(ctx context.Context) ([]*Product, error) {
	return s.repo.ListActive(ctx, DefaultCategory)
}

// Get возвращает товар по ID.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Search ищет товары по подстроке имени. Не больше 5 результатов,
// чтобы ответ влезал в одно сообщение.
func (s *Service) Search(ctx context.Context, term string) ([]*Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("пустой поисковый запрос")
	}
	return s.repo.Search(ctx, term, 5)
}

// Create добавляет новый товар.
func (s *Service) Create(ctx context.Context, in *ProductInput) (int64, error) {
	return s.repo.Create(ctx, in)
}

// UpdateField обновляет одно поле товара (админка).
func (s *Service) UpdateField(ctx context.Context, id int64, field string, value interface{}) error {
	return s.repo.UpdateField(ctx, id, field, value)
}

// ParseProductSpec разбирает админский формат добавления товара:
//
//	Название|Описание|Цена|Остаток|Дни гарантии
//
// Пример: Netflix Premium|Премиум-доступ|29.90|100|30
func ParseProductSpec(text string) (*ProductInput, error) {
	parts := strings.Split(text, "|")
	if len(parts) < 5 {
		return nil, fmt.Errorf("нужно 5 полей через |, получено %d", len(parts))
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return nil, fmt.Errorf("название не может быть пустым")
	}

	price, err := common.ParseAmount(parts[2])
	if err != nil {
		return nil, fmt.Errorf("некорректная цена %q", strings.TrimSpace(parts[2]))
	}

	stock, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil || stock < 0 {
		return nil, fmt.Errorf("некорректный остаток %q", strings.TrimSpace(parts[3]))
	}

	warranty, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil || warranty < 0 {
		return nil, fmt.Errorf("некорректная гарантия %q", strings.TrimSpace(parts[4]))
	}

	return &ProductInput{
		Name:         name,
		Description:  strings.TrimSpace(parts[1]),
		Price:        price,
		Stock:        stock,
		WarrantyDays: warranty,
		Category:     DefaultCategory,
	}, nil
}
