// Package docextract provides an LM-assisted documentation extraction
// pipeline. It deep-crawls a documentation site from a seed URL, optionally
// filters pages for relevance with a language model, extracts structured
// content from each page with a second model, and persists results behind a
// content-addressed cache so unchanged pages never trigger repeat LM work.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., fs/, openai/, goquery/).
package docextract
