package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage     = errors.New("message must not be empty")
	ErrInvalidDossierID = errors.New("invalid dossier id")
)

// LLMCallError aborts a turn when a model call outside tool dispatch fails
type LLMCallError struct {
	Phase string
	Err   error
}

func (e *LLMCallError) Error() string {
	return fmt.Sprintf("llm call failed during %s: %v", e.Phase, e.Err)
}

func (e *LLMCallError) Unwrap() error {
	return e.Err
}

// PersistenceError aborts a turn when the dossier cannot be loaded or saved
type PersistenceError struct {
	Op        string
	DossierID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s dossier %s: %v", e.Op, e.DossierID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
