// Package remote implements the HTTP client for the episode source service.
//
// The source exposes three JSON endpoints: the full episode list, the episode
// list filtered by category, and the custom sort order (a sequence of episode
// ids). Any call may fail with network or decode errors; callers decide the
// recovery policy.
package remote
