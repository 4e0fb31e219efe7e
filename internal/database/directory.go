package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"autorent/internal/config"
	"autorent/internal/models"
)

// GetVehicle returns a vehicle or ErrNotFound.
func (db *DB) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var (
		v      models.Vehicle
		status string
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, brand, model, plate, price, status, updated_at FROM vehicles WHERE id = ?`, id,
	).Scan(&v.ID, &v.Brand, &v.Model, &v.Plate, &v.Price, &status, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle %s: %w", id, err)
	}
	v.Status = models.VehicleStatus(status)
	return &v, nil
}

// ListVehicles returns every vehicle ordered by brand and model.
func (db *DB) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, brand, model, plate, price, status, updated_at FROM vehicles ORDER BY brand, model, id`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var out []models.Vehicle
	for rows.Next() {
		var (
			v      models.Vehicle
			status string
		)
		if err := rows.Scan(&v.ID, &v.Brand, &v.Model, &v.Plate, &v.Price, &status, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Status = models.VehicleStatus(status)
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpsertVehicle inserts or replaces a vehicle, preserving created_at.
func (db *DB) UpsertVehicle(ctx context.Context, v *models.Vehicle) error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.Status == "" {
		v.Status = models.VehicleAvailable
	}
	now := db.now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO vehicles (id, brand, model, plate, price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			brand = excluded.brand,
			model = excluded.model,
			plate = excluded.plate,
			price = excluded.price,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		v.ID, v.Brand, v.Model, v.Plate, v.Price, string(v.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert vehicle %s: %w", v.ID, err)
	}
	v.UpdatedAt = now
	return nil
}

// GetCustomer returns a customer or ErrNotFound.
func (db *DB) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := db.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.FullName, &c.Email, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	return &c, nil
}

// ListCustomers returns customers ordered by name.
func (db *DB) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, full_name, email, phone FROM customers ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCustomer inserts or replaces a customer.
func (db *DB) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	if c.ID == "" || c.FullName == "" {
		return fmt.Errorf("customer id and full_name are required")
	}
	now := db.now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO customers (id, full_name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			phone = excluded.phone,
			updated_at = excluded.updated_at`,
		c.ID, c.FullName, c.Email, c.Phone, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert customer %s: %w", c.ID, err)
	}
	return nil
}

// SyncFleetFromConfig applies fleet.yaml to the directory tables. Vehicles
// missing from the file are retired rather than deleted so their
// reservations keep resolving.
func (db *DB) SyncFleetFromConfig(ctx context.Context, cfg *config.FleetConfig) (retired []string, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("fleet config is nil")
	}

	seen := make(map[string]struct{}, len(cfg.Vehicles))
	for _, vc := range cfg.Vehicles {
		v := models.Vehicle{
			ID:     vc.ID,
			Brand:  vc.Brand,
			Model:  vc.Model,
			Plate:  vc.Plate,
			Price:  vc.Price,
			Status: models.VehicleStatus(vc.Status),
		}
		if err := db.UpsertVehicle(ctx, &v); err != nil {
			return nil, err
		}
		seen[vc.ID] = struct{}{}
	}

	for _, cc := range cfg.Customers {
		c := models.Customer{ID: cc.ID, FullName: cc.FullName, Email: cc.Email, Phone: cc.Phone}
		if err := db.UpsertCustomer(ctx, &c); err != nil {
			return nil, err
		}
	}

	existing, err := db.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	now := db.now().UTC()
	for _, v := range existing {
		if _, ok := seen[v.ID]; ok || v.Status == models.VehicleRetired {
			continue
		}
		if _, err := db.ExecContext(ctx, `UPDATE vehicles SET status = ?, updated_at = ? WHERE id = ?`,
			string(models.VehicleRetired), now, v.ID); err != nil {
			return nil, fmt.Errorf("retire vehicle %s: %w", v.ID, err)
		}
		retired = append(retired, v.ID)
	}

	db.logger.Info().Int("vehicles", len(cfg.Vehicles)).Int("customers", len(cfg.Customers)).
		Strs("retired", retired).Msg("fleet synced from config")
	return retired, nil
}
