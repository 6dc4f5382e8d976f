// Package mock provides deterministic test doubles for the ai interfaces.
//
// The default behaviors need no network: embeddings are unit vectors hashed
// from the input text, and analyses are keyword-guessed. Function fields
// override behavior per test.
package mock
