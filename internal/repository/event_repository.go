package repository

import (
	"fmt"

	"github.com/khatadev/khata/internal/models"
	"gorm.io/gorm"
)

// EventRepository est une interface qui définit les méthodes d'accès aux
// événements analytiques.
type EventRepository interface {
	CreateEvent(event *models.Event) error
	CountEventsByAction(action string) (int, error)
	CountEventsByUID(uid string) (int, error)
}

// GormEventRepository est l'implémentation de EventRepository utilisant GORM.
type GormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository crée et retourne une nouvelle instance de
// GormEventRepository.
func NewEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// CreateEvent insère un nouvel événement dans la base analytique.
func (r *GormEventRepository) CreateEvent(event *models.Event) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// CountEventsByAction compte les événements enregistrés pour une action.
func (r *GormEventRepository) CountEventsByAction(action string) (int, error) {
	var count int64
	if err := r.db.Model(&models.Event{}).Where("action = ?", action).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events for action %s: %w", action, err)
	}
	return int(count), nil
}

// CountEventsByUID compte les événements d'un client anonyme.
func (r *GormEventRepository) CountEventsByUID(uid string) (int, error) {
	var count int64
	if err := r.db.Model(&models.Event{}).Where("uid = ?", uid).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events for uid %s: %w", uid, err)
	}
	return int(count), nil
}
