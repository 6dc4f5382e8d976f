// Copyright 2025 Stash Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package badger implements the storage repositories on BadgerDB.
//
// Records are serialized with MUS and stored under string-prefixed keys.
// Secondary indexes (creation date, collection membership) use composite
// keys with BigEndian-encoded integers so that lexicographic key order
// matches logical order, which makes range scans and reverse iteration
// cheap.
//
// The vector and lexical search primitives are full scans over the primary
// records. That is a deliberate trade-off: a personal bookmark store holds
// thousands of records, not millions, and a scan over an in-memory-cached
// LSM tree is faster than maintaining inverted index structures would be
// worth.
package badger
