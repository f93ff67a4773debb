// Package repository хранит историю анализов чувствительности.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrAnalysisNotFound - анализ с таким ID не найден
var ErrAnalysisNotFound = errors.New("analysis not found")

// Analysis - сохранённый анализ.
// Problem и Result хранят JSON задачи и полного ответа; Ranges дублирует
// диапазоны построчно для выборок по ограничениям.
type Analysis struct {
	ID             string
	Name           string
	Solver         string
	Status         string
	Message        string
	Objective      float64
	NumVars        int
	NumConstraints int
	DurationMs     float64
	Problem        []byte
	Result         []byte
	Ranges         []RangeRow
	CreatedAt      time.Time
}

// RangeRow - диапазон одного ограничения; nil граница - неограниченное направление
type RangeRow struct {
	Position    int
	Label       string
	CurrentRHS  float64
	ShadowPrice float64
	Increase    *float64
	Decrease    *float64
}

// Summary - краткая информация для списка
type Summary struct {
	ID             string
	Name           string
	Solver         string
	Status         string
	Objective      float64
	NumVars        int
	NumConstraints int
	CreatedAt      time.Time
}

// ListOptions - пагинация и фильтры списка
type ListOptions struct {
	Limit  int
	Offset int
	Status string
	Solver string
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (o *ListOptions) normalize() ListOptions {
	out := ListOptions{Limit: defaultListLimit}
	if o != nil {
		out = *o
	}
	if out.Limit <= 0 {
		out.Limit = defaultListLimit
	}
	if out.Limit > maxListLimit {
		out.Limit = maxListLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

// AnalysisRepository - хранилище анализов
type AnalysisRepository interface {
	// Create присваивает ID (если пуст) и CreatedAt
	Create(ctx context.Context, a *Analysis) error
	GetByID(ctx context.Context, id string) (*Analysis, error)
	// List возвращает страницу, отсортированную по убыванию CreatedAt, и общее число записей
	List(ctx context.Context, opts *ListOptions) ([]*Summary, int64, error)
	Delete(ctx context.Context, id string) error
}

func (a *Analysis) summary() *Summary {
	return &Summary{
		ID:             a.ID,
		Name:           a.Name,
		Solver:         a.Solver,
		Status:         a.Status,
		Objective:      a.Objective,
		NumVars:        a.NumVars,
		NumConstraints: a.NumConstraints,
		CreatedAt:      a.CreatedAt,
	}
}

func (a *Analysis) clone() *Analysis {
	out := *a
	out.Problem = append([]byte(nil), a.Problem...)
	out.Result = append([]byte(nil), a.Result...)
	out.Ranges = make([]RangeRow, len(a.Ranges))
	for i, r := range a.Ranges {
		out.Ranges[i] = r
		out.Ranges[i].Increase = clonePtr(r.Increase)
		out.Ranges[i].Decrease = clonePtr(r.Decrease)
	}
	return &out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
