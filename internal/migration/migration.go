package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	customerdomain "github.com/smallbiznis/retailcore/internal/customer/domain"
	expensedomain "github.com/smallbiznis/retailcore/internal/expense/domain"
	locationdomain "github.com/smallbiznis/retailcore/internal/location/domain"
	organizationdomain "github.com/smallbiznis/retailcore/internal/organization/domain"
	productdomain "github.com/smallbiznis/retailcore/internal/product/domain"
	saledomain "github.com/smallbiznis/retailcore/internal/sale/domain"
	taxruledomain "github.com/smallbiznis/retailcore/internal/taxrule/domain"
)

// RunMigrations applies the embedded SQL migrations so the service is
// usable out of the box on a fresh postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema from the gorm models. Used for the
// mysql and sqlite dialects, where the versioned SQL files do not apply.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	return conn.AutoMigrate(
		&organizationdomain.Organization{},
		&taxruledomain.TaxRule{},
		&locationdomain.Location{},
		&productdomain.Product{},
		&productdomain.ProductStock{},
		&customerdomain.Customer{},
		&saledomain.Sale{},
		&saledomain.SaleLineItem{},
		&expensedomain.Expense{},
	)
}
