package middleware

import (
	"sync"
	"time"

	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// แต่ละ IP มี limiter ของตัวเอง + lastSeen ไว้ล้างทิ้ง
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter จำกัดจำนวน request ต่อ IP
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	reqPerMin int
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// reqPerMin เช่น 30, burst 10, ttl คือเวลาที่ IP ไม่เคลื่อนไหวก่อนถูกล้าง
func NewIPRateLimiter(reqPerMin, burst int, ttl time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		reqPerMin: reqPerMin,
		burst:     burst,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	if v, ok := rl.visitors[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}

	// req/นาที -> req/วินาที
	limiter := rate.NewLimiter(rate.Limit(float64(rl.reqPerMin)/60.0), rl.burst)
	rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: now}
	return limiter
}

// sweep drops idle visitors at most once per ttl; caller holds mu.
func (rl *IPRateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.ttl {
		return
	}
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}

// RateLimitByIP ตอบ 429 เมื่อเกินโควตา
func RateLimitByIP(rl *IPRateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.getLimiter(c.IP()).Allow() {
			return utils.HandleError(c, fiber.StatusTooManyRequests, "Too Many Requests, please try again later")
		}
		return c.Next()
	}
}
