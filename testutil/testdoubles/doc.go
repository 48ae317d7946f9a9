// Package testdoubles provides spies, mocks and fixtures for testing the event publisher and its
// collaborators without a running broker.
package testdoubles
