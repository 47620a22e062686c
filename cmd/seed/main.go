// Package main seeds the operator account. The platform wallet singleton
// is created by the migration step inside InitDB.
package main

import (
	"os"

	"relist/internal/config"
	"relist/internal/models"
	"relist/internal/repositories"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()
	log := logrus.New()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := os.Getenv("ADMIN_PHONE")
	if adminEmail == "" || adminPassword == "" || adminPhone == "" {
		log.Fatal("ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_PHONE must be set")
	}

	if err := repositories.InitDB(); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}

	var existing models.User
	if err := repositories.DB.Where("email = ?", adminEmail).First(&existing).Error; err == nil {
		log.Info("admin user already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Fatal("failed to hash password")
	}

	admin := models.User{
		Email:        adminEmail,
		Password:     string(hashed),
		Phone:        adminPhone,
		Name:         "Operator",
		Role:         "admin",
		Status:       "active",
		TokenVersion: 1,
	}
	if err := repositories.DB.Create(&admin).Error; err != nil {
		log.WithError(err).Fatal("failed to create admin user")
	}

	log.WithField("email", adminEmail).Info("admin account created")
}
