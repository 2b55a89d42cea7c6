// Package engine holds the pure core of wrapflow: dependency graph
// construction over a project's form instances, graph queries, the
// completion evaluator, batch transition validation, task scheduling and
// the authorization policy.
//
// Nothing here touches storage or keeps state between calls. Callers load
// records, build a fresh Graph per request and act on the results.
package engine
