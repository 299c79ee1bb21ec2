// Package qloo looks up cultural signals (themes, tone, aesthetics, brands)
// for a city/country pair through the cultural intelligence API, with an
// optional redis-backed response cache.
package qloo
