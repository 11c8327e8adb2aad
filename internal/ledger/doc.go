// Package ledger loads, queries, and updates the task ledger.
//
// The ledger file (ai-docs/TASKS.json) has the shape:
//
//	{
//	  "iteration": 1,
//	  "tasks": [
//	    {
//	      "id": "TASK-001",
//	      "priority": "P1",
//	      "status": "pending",
//	      "title": "Task title",
//	      "context": "any other field is kept as-is"
//	    }
//	  ]
//	}
//
// # Schema tolerance
//
// Tasks are stored as insertion-ordered maps of raw JSON values. Known fields
// (id, status, priority, title, description) are read through accessors; every
// other field, and every unknown root field, survives a load/save cycle
// unchanged and in its original order.
//
// # Task Status Values
//
//   - "pending": not started
//   - "inProgress": being worked on
//   - "testing": waiting for tests
//   - "tested": tests passed
//   - "bug": a defect was found
//   - "completed": done
//
// The store never validates status or priority on write. Use Validate to
// report documents that drift from the canonical values.
//
// # Concurrency
//
// Every operation is a single load-mutate-save cycle against the file. There
// is no locking: two processes mutating the same ledger concurrently race and
// the last write wins.
package ledger
