// Package scheduler splits a search over a vector source across compute
// backends and merges their partial answers.
//
// A search runs in four steps:
//
//  1. Mode: workloads with fewer than SmallWorkloadThreshold query x row
//     pairs run synchronously on the fallback backend.
//  2. Partition: the Policy assigns each backend a contiguous, disjoint row
//     range. Together the ranges cover every row.
//  3. Fan-out: every backend with a non-empty range searches it
//     concurrently into a private buffer. A failed range is retried once on
//     the fallback backend.
//  4. Merge: per query, the real hits of all partial answers are ranked and
//     the best k are kept.
//
// Because each backend returns its exact top-k over its range, the merged
// answer equals the exact top-k over all rows, up to the order of ties.
package scheduler
