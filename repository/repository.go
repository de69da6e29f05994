// Package repository implements data access layer for the application
package repository

import (
	"errors"
	"log"

	"gorm.io/gorm"
	"weathertogether.app/models"
)

// SubscriptionRepository handles data access operations for subscriptions
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new repository for subscription data
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindByEmail retrieves all subscription rows belonging to an email
func (r *SubscriptionRepository) FindByEmail(email string) ([]models.Subscription, error) {
	log.Printf("[DEBUG] SubscriptionRepository.FindByEmail: email=%s\n", email)

	var subscriptions []models.Subscription
	result := r.db.Where("email = ?", email).Order("id").Find(&subscriptions)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when finding subscriptions: %v\n", result.Error)
		return nil, result.Error
	}

	log.Printf("[DEBUG] Found %d subscription rows for %s\n", len(subscriptions), email)
	return subscriptions, nil
}

// FindByEmailAndPostalCode retrieves a single subscription row, nil if absent
func (r *SubscriptionRepository) FindByEmailAndPostalCode(email, postalCode string) (*models.Subscription, error) {
	log.Printf("[DEBUG] SubscriptionRepository.FindByEmailAndPostalCode: email=%s, postalCode=%s\n", email, postalCode)

	var subscription models.Subscription
	result := r.db.Where("email = ? AND postal_code = ?", email, postalCode).First(&subscription)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Println("[DEBUG] No subscription found")
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding subscription: %v\n", result.Error)
		return nil, result.Error
	}

	return &subscription, nil
}

// FindByUserID retrieves the first subscription row for a user id
func (r *SubscriptionRepository) FindByUserID(userID int64) (*models.Subscription, error) {
	log.Printf("[DEBUG] SubscriptionRepository.FindByUserID: userID=%d\n", userID)

	var subscription models.Subscription
	result := r.db.Where("user_id = ?", userID).Order("id").First(&subscription)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding subscription by user id: %v\n", result.Error)
		return nil, result.Error
	}

	return &subscription, nil
}

// ListAll retrieves every subscription row in insertion order
func (r *SubscriptionRepository) ListAll() ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	result := r.db.Order("id").Find(&subscriptions)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when listing subscriptions: %v\n", result.Error)
		return nil, result.Error
	}

	return subscriptions, nil
}

// Create persists a new subscription row
func (r *SubscriptionRepository) Create(subscription *models.Subscription) error {
	log.Printf("[DEBUG] SubscriptionRepository.Create: email=%s, postalCode=%s\n",
		subscription.Email, subscription.PostalCode)

	result := r.db.Create(subscription)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when creating subscription: %v\n", result.Error)
		return result.Error
	}

	log.Printf("[DEBUG] Created subscription with ID: %d\n", subscription.ID)
	return nil
}

// Update modifies an existing subscription row
func (r *SubscriptionRepository) Update(subscription *models.Subscription) error {
	log.Printf("[DEBUG] SubscriptionRepository.Update: id=%d\n", subscription.ID)

	result := r.db.Save(subscription)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when updating subscription: %v\n", result.Error)
		return result.Error
	}

	log.Println("[DEBUG] Updated subscription successfully")
	return nil
}

// DeleteByEmail removes every subscription row for an email
func (r *SubscriptionRepository) DeleteByEmail(email string) error {
	log.Printf("[DEBUG] SubscriptionRepository.DeleteByEmail: email=%s\n", email)

	result := r.db.Where("email = ?", email).Delete(&models.Subscription{})
	if result.Error != nil {
		log.Printf("[ERROR] Database error when deleting subscriptions: %v\n", result.Error)
		return result.Error
	}

	log.Printf("[DEBUG] Deleted %d subscription rows\n", result.RowsAffected)
	return nil
}

// DisableCrowdSource clears the crowd-source opt-in flag for an email
// without removing any subscription rows
func (r *SubscriptionRepository) DisableCrowdSource(email string) error {
	log.Printf("[DEBUG] SubscriptionRepository.DisableCrowdSource: email=%s\n", email)

	result := r.db.Model(&models.Subscription{}).
		Where("email = ?", email).
		Update("crowd_source_opt_in", false)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when disabling crowd sourcing: %v\n", result.Error)
		return result.Error
	}

	return nil
}
