// Package storage opens the repositories selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/ezhealth/appointment-api/internal/config"
	"github.com/ezhealth/appointment-api/internal/repository"
	"github.com/ezhealth/appointment-api/internal/repository/memory"
	"github.com/ezhealth/appointment-api/internal/repository/postgres"
)

type Repositories struct {
	Appointments  repository.AppointmentRepository
	Doctors       repository.DoctorRepository
	Users         repository.UserRepository
	Prescriptions repository.PrescriptionRepository
	Outbox        repository.OutboxRepository

	// Ping reports whether the backing store is reachable.
	Ping  func(ctx context.Context) error
	Close func() error
}

// Open connects to the configured driver. The memory driver is for local
// runs only; its data is gone when the process exits.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Repositories, error) {
	switch cfg.Driver {
	case "", "postgres":
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Appointments:  postgres.NewAppointmentRepository(db),
			Doctors:       postgres.NewDoctorRepository(db),
			Users:         postgres.NewUserRepository(db),
			Prescriptions: postgres.NewPrescriptionRepository(db),
			Outbox:        postgres.NewOutboxRepository(db),
			Ping:          db.PingContext,
			Close:         db.Close,
		}, nil

	case "memory":
		s := memory.NewStore()
		return &Repositories{
			Appointments:  s.Appointments(),
			Doctors:       s.Doctors(),
			Users:         s.Users(),
			Prescriptions: s.Prescriptions(),
			Outbox:        s.Outbox(),
			Ping:          func(context.Context) error { return nil },
			Close:         func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
