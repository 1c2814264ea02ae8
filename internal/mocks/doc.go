// Package mocks provides centralized fakes for testing.
//
// MemoryDB stands in for the PostgreSQL stores: its views implement every
// store interface over shared in-memory tables and return the same sentinel
// errors. MockTransactor runs transactional functions directly. The
// collaborator mocks (MockGenerator, MockJudge, MockExplainer, MockJWTService)
// use function fields so a test can override a single method.
//
// Usage:
//
//	db := mocks.NewMemoryDB()
//	judge := &mocks.MockJudge{
//	    Judgment: &generation.Judgment{Verdict: domain.VerdictCorrect},
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Document any helper methods or special functionality
package mocks
