// Package application contém os casos de uso (regras de aplicação) do rate limit.
//
// Ele depende apenas do pacote domain e não conhece net/http.
//   - Classifier.Classify(req) decide a categoria (ou bypass)
//   - Limiter.Check(ctx, req) classifica e admite contra o WindowStore
//   - BurstService.Decide(key) e SlotService.Acquire(ctx) são as proteções de
//     rajada e de concorrência do gateway
package application
