// Package ratelimit fornece adapters HTTP (net/http) para o rate limit por categoria,
// a proteção de rajada e o limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: categorias, políticas e contratos (sem dependência de net/http)
//   - application: classificação, admissão por janela, rajada e vagas, sem net/http
//   - infra: janelas em memória/Redis, token bucket, semáforo, estatísticas
//   - ratelimit (este pacote): middlewares HTTP + tradução para status/headers
//
// Fluxo por requisição:
//
//  1. BurstMiddleware barra rajadas por cliente (429 BURST_RATE_LIMIT_EXCEEDED)
//  2. Middleware classifica a requisição (role elevada passa direto; autenticado
//     usa a categoria authenticated) e conta na janela categoria + cliente
//  3. Se bloqueado, responde 429 com o código da categoria e Retry-After;
//     falha do store responde 503 RATE_LIMIT_UNAVAILABLE
//  4. Na categoria auth, respostas de sucesso devolvem a contagem: só
//     tentativas que falham consomem o orçamento
//
// ConcurrencyMiddleware fica na frente do upstream no gateway (503 SERVER_BUSY).
package ratelimit
