package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDownloadServiceTest(t *testing.T) (*DownloadService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:download_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Product{},
		&models.License{},
		&models.DownloadCredential{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewDownloadService(
		repository.NewDownloadCredentialRepository(db),
		repository.NewLicenseRepository(db),
		repository.NewProductRepository(db),
		60,
	)
	return svc, db
}

func seedDownloadFixture(t *testing.T, db *gorm.DB, deliveryType string, expiresAt time.Time) (models.Product, models.License, models.DownloadCredential) {
	t.Helper()
	product := models.Product{
		Slug:         fmt.Sprintf("dl-product-%d", time.Now().UnixNano()),
		Name:         "Download Product",
		Price:        models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		DeliveryType: deliveryType,
		FileURL:      "https://cdn.example.com/download.zip",
		ExternalURL:  "https://example.com/external",
		Status:       constants.ProductStatusOnSale,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	license := models.License{
		LicenseKey: fmt.Sprintf("lic-%d", time.Now().UnixNano()),
		OrderID:    1,
		UserID:     1,
		ProductID:  product.ID,
		Status:     constants.LicenseStatusActive,
		IssuedAt:   time.Now(),
	}
	if err := db.Create(&license).Error; err != nil {
		t.Fatalf("create license failed: %v", err)
	}
	credential := models.DownloadCredential{
		Token:     fmt.Sprintf("tok-%d", time.Now().UnixNano()),
		LicenseID: license.ID,
		OrderID:   1,
		UserID:    1,
		ProductID: product.ID,
		ExpiresAt: expiresAt,
	}
	if err := db.Create(&credential).Error; err != nil {
		t.Fatalf("create credential failed: %v", err)
	}
	return product, license, credential
}

func TestRedeemSingleUse(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)
	_, _, credential := seedDownloadFixture(t, db, constants.DeliveryTypeFile, time.Now().Add(time.Hour))

	grant, err := svc.Redeem(credential.Token)
	if err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if grant.FileURL != "https://cdn.example.com/download.zip" {
		t.Fatalf("unexpected file url: %s", grant.FileURL)
	}
	if !grant.Credential.Used || grant.Credential.UsedAt == nil {
		t.Fatalf("credential should be marked used: %+v", grant.Credential)
	}

	if _, err := svc.Redeem(credential.Token); !errors.Is(err, ErrDownloadTokenUsed) {
		t.Fatalf("second redeem should fail with used, got: %v", err)
	}
}

func TestRedeemDistinguishesFailures(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)

	if _, err := svc.Redeem("no-such-token"); !errors.Is(err, ErrDownloadTokenNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}

	_, _, expired := seedDownloadFixture(t, db, constants.DeliveryTypeFile, time.Now().Add(-time.Minute))
	if _, err := svc.Redeem(expired.Token); !errors.Is(err, ErrDownloadTokenExpired) {
		t.Fatalf("expected expired, got: %v", err)
	}
}

func TestRedeemRejectsRevokedLicense(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)
	_, license, credential := seedDownloadFixture(t, db, constants.DeliveryTypeFile, time.Now().Add(time.Hour))

	if err := db.Model(&models.License{}).Where("id = ?", license.ID).
		Update("status", constants.LicenseStatusRevoked).Error; err != nil {
		t.Fatalf("update license failed: %v", err)
	}

	if _, err := svc.Redeem(credential.Token); !errors.Is(err, ErrLicenseNotActive) {
		t.Fatalf("expected license not active, got: %v", err)
	}

	// 被拒绝的核销不消耗令牌
	var stored models.DownloadCredential
	if err := db.Where("token = ?", credential.Token).First(&stored).Error; err != nil {
		t.Fatalf("load credential failed: %v", err)
	}
	if stored.Used {
		t.Fatalf("credential should stay unused after denied redeem")
	}
}

func TestRedeemCountsLicenseAccess(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)
	_, license, credential := seedDownloadFixture(t, db, constants.DeliveryTypeFile, time.Now().Add(time.Hour))

	if err := db.Model(&models.License{}).Where("id = ?", license.ID).
		Update("max_access", 2).Error; err != nil {
		t.Fatalf("update license failed: %v", err)
	}

	if _, err := svc.Redeem(credential.Token); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	var stored models.License
	if err := db.First(&stored, license.ID).Error; err != nil {
		t.Fatalf("load license failed: %v", err)
	}
	if stored.AccessCount != 1 {
		t.Fatalf("access_count want 1 got %d", stored.AccessCount)
	}

	// 次数耗尽后新令牌也无法核销，且令牌不被消耗
	if err := db.Model(&models.License{}).Where("id = ?", license.ID).
		Update("access_count", 2).Error; err != nil {
		t.Fatalf("update license failed: %v", err)
	}
	fresh := models.DownloadCredential{
		Token:     fmt.Sprintf("tok-fresh-%d", time.Now().UnixNano()),
		LicenseID: license.ID,
		OrderID:   1,
		UserID:    1,
		ProductID: credential.ProductID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("create credential failed: %v", err)
	}
	if _, err := svc.Redeem(fresh.Token); !errors.Is(err, ErrLicenseExhausted) {
		t.Fatalf("expected license exhausted, got: %v", err)
	}
	var freshStored models.DownloadCredential
	if err := db.Where("token = ?", fresh.Token).First(&freshStored).Error; err != nil {
		t.Fatalf("load credential failed: %v", err)
	}
	if freshStored.Used {
		t.Fatalf("credential should stay unused when license is exhausted")
	}
}

func TestReissueCreatesFreshCredential(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)
	_, license, old := seedDownloadFixture(t, db, constants.DeliveryTypeFile, time.Now().Add(-time.Minute))

	credential, err := svc.Reissue(1, license.LicenseKey)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if credential.Token == old.Token {
		t.Fatalf("reissue should mint a new token")
	}
	if !credential.ExpiresAt.After(time.Now()) {
		t.Fatalf("new credential should not be expired: %+v", credential.ExpiresAt)
	}
	if credential.LicenseID != license.ID {
		t.Fatalf("credential license want %d got %d", license.ID, credential.LicenseID)
	}
}

func TestReissueRejectsWrongOwnerAndRevoked(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)
	_, license, _ := seedDownloadFixture(t, db, constants.DeliveryTypeFile, time.Now().Add(time.Hour))

	if _, err := svc.Reissue(99, license.LicenseKey); !errors.Is(err, ErrLicenseNotFound) {
		t.Fatalf("expected license not found for other user, got: %v", err)
	}

	if err := db.Model(&models.License{}).Where("id = ?", license.ID).
		Update("status", constants.LicenseStatusRevoked).Error; err != nil {
		t.Fatalf("update license failed: %v", err)
	}
	if _, err := svc.Reissue(1, license.LicenseKey); !errors.Is(err, ErrLicenseNotActive) {
		t.Fatalf("expected license not active, got: %v", err)
	}
}

func TestReissueRejectsExhaustedLicense(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)
	_, license, _ := seedDownloadFixture(t, db, constants.DeliveryTypeFile, time.Now().Add(time.Hour))

	if err := db.Model(&models.License{}).Where("id = ?", license.ID).
		Updates(map[string]interface{}{"max_access": 1, "access_count": 1}).Error; err != nil {
		t.Fatalf("update license failed: %v", err)
	}

	if _, err := svc.Reissue(1, license.LicenseKey); !errors.Is(err, ErrLicenseExhausted) {
		t.Fatalf("expected license exhausted, got: %v", err)
	}
}

func TestReissueRejectsExternalDelivery(t *testing.T) {
	svc, db := setupDownloadServiceTest(t)
	_, license, _ := seedDownloadFixture(t, db, constants.DeliveryTypeExternal, time.Now().Add(time.Hour))

	if _, err := svc.Reissue(1, license.LicenseKey); !errors.Is(err, ErrDownloadNotFileDelivery) {
		t.Fatalf("expected not file delivery, got: %v", err)
	}
}
