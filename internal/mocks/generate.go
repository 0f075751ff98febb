// Package mocks provides mock implementations for testing the session core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the outbound ports. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockMail := mocks.NewMockMailSender(ctrl)
//	mockMail.EXPECT().SendVerification(gomock.Any(), "a@b.com", gomock.Any()).Return(nil)
//
// Hand-written doubles for the identity provider and record store live in the
// identitymocks subpackage; those ports carry subscription callbacks that are
// easier to drive without codegen.
package mocks

// Generate mock for MailSender interface from internal/ports package.
// This creates MockMailSender with methods:
// SendVerification, SendPasswordReset
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=mail_sender_mock.go github.com/loveliiivelaugh/exercise-tracker/internal/ports MailSender

// Generate mock for AnalyticsSink interface from internal/ports package.
// This creates MockAnalyticsSink with methods:
// Identify
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=analytics_sink_mock.go github.com/loveliiivelaugh/exercise-tracker/internal/ports AnalyticsSink

// Generate mock for ExternalSignInBroker interface from internal/ports package.
// This creates MockExternalSignInBroker with methods:
// Begin, Exchange
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=external_broker_mock.go github.com/loveliiivelaugh/exercise-tracker/internal/ports ExternalSignInBroker

// Generate mock for ActivityStore interface from internal/ports package.
// This creates MockActivityStore with methods:
// Create, GetByID, ListByOwner, Update, Delete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=activity_store_mock.go github.com/loveliiivelaugh/exercise-tracker/internal/ports ActivityStore
