// Package source reads registration intake files and pre-settled payment
// imports. Both are YAML and decoded strictly so a typo in a field name fails
// the load instead of silently dropping data.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

// RegistrationEntry is one row of an intake file.
type RegistrationEntry struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Group    string `yaml:"group,omitempty"`
}

type registrationFile struct {
	Registrations []RegistrationEntry `yaml:"registrations"`
}

// SettledEntry is a payment already collected outside the console, e.g. a
// gateway export.
type SettledEntry struct {
	ID          string `yaml:"id"`
	PaymentMode string `yaml:"payment_mode"`
	Operator    string `yaml:"operator"`
}

type settledFile struct {
	Settled []SettledEntry `yaml:"settled"`
}

// LoadRegistrationsFile reads an intake file from path.
func LoadRegistrationsFile(path string) ([]models.Registration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registrations: %w", err)
	}
	defer f.Close()
	return LoadRegistrations(f)
}

// LoadRegistrations decodes pending registrations. Every row is checked and
// all errors are reported together.
func LoadRegistrations(r io.Reader) ([]models.Registration, error) {
	var file registrationFile
	if err := decode(r, &file); err != nil {
		return nil, fmt.Errorf("parse registrations: %w", err)
	}

	var errs []error
	seen := make(map[string]int, len(file.Registrations))
	regs := make([]models.Registration, 0, len(file.Registrations))
	for i, e := range file.Registrations {
		id := strings.TrimSpace(e.ID)
		if prev, dup := seen[id]; dup && id != "" {
			errs = append(errs, fmt.Errorf("row %d: id %s duplicates row %d", i+1, id, prev))
			continue
		}
		seen[id] = i + 1

		category, err := models.ParseCategory(strings.TrimSpace(e.Category))
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		reg, err := models.NewPending(models.RegistrationID(id), category, strings.TrimSpace(e.Group))
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		regs = append(regs, reg)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return regs, nil
}

// LoadSettledFile reads a settled-payments file from path.
func LoadSettledFile(path string) ([]models.FinalizeRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settled payments: %w", err)
	}
	defer f.Close()
	return LoadSettled(f)
}

// LoadSettled decodes settled payments into finalize requests, one per
// (payment mode, operator) pair in first-seen order.
func LoadSettled(r io.Reader) ([]models.FinalizeRequest, error) {
	var file settledFile
	if err := decode(r, &file); err != nil {
		return nil, fmt.Errorf("parse settled payments: %w", err)
	}

	type key struct {
		mode     models.PaymentMode
		operator string
	}
	var (
		errs  []error
		order []key
	)
	batches := make(map[key]*models.FinalizeRequest)
	for i, e := range file.Settled {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("row %d: id is required", i+1))
			continue
		}
		mode, err := models.ParsePaymentMode(strings.TrimSpace(e.PaymentMode))
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		operator := strings.TrimSpace(e.Operator)
		if operator == "" {
			errs = append(errs, fmt.Errorf("row %d: operator is required", i+1))
			continue
		}

		k := key{mode: mode, operator: operator}
		batch, ok := batches[k]
		if !ok {
			batch = &models.FinalizeRequest{PaymentMode: mode, Operator: operator}
			batches[k] = batch
			order = append(order, k)
		}
		batch.IDs = append(batch.IDs, models.RegistrationID(id))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	out := make([]models.FinalizeRequest, 0, len(order))
	for _, k := range order {
		out = append(out, *batches[k])
	}
	return out, nil
}

func decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
