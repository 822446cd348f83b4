// Package feed turns newly known pages of a website scan into queued
// page scan requests.
//
// The Generator is called at the end of every deep scan run. It compares
// the pages recorded on the website scan with the requests already queued
// for it and enqueues one deep scan request per new page. Queues keep
// requests unique per website scan and URL, so calling the Generator again
// with the same website scan adds nothing.
//
// Queue implementations live in internal/database (SQLite) and
// internal/redisstore (Redis).
package feed
