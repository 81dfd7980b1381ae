package models

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/florist_backend/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// every cached page key is also a member of this set so a commit can drop them all
const recentSalesCacheSet = "RecentSales:keys"

func recentSalesCacheKey(limit int) string {
	return fmt.Sprintf("RecentSales:%d", limit)
}

// ClampRecentSalesLimit maps a requested page size onto the served range.
func ClampRecentSalesLimit(limit int) int {
	if limit <= 0 {
		return config.DefaultRecentSalesLimit
	}
	if limit > config.MaxRecentSalesLimit {
		return config.MaxRecentSalesLimit
	}
	return limit
}

// ListRecentSales returns up to limit sales, newest first, each with its items and flower names.
// It never writes to the store.
func (s *SaleService) ListRecentSales(ctx context.Context, limit int) (sales []*Sale, err error) {
	limit = ClampRecentSalesLimit(limit)
	ctx, span := tracer.Start(ctx, "ListRecentSales", trace.WithAttributes(attribute.Int("sales.limit", limit)))
	defer func() {
		endSpan(span, err)
	}()

	key := recentSalesCacheKey(limit)
	ttl := config.RecentSalesCacheTTL()
	if ttl > 0 {
		var cached []*Sale
		found, cacheErr := config.GetRedisObject(key, &cached)
		if cacheErr != nil {
			s.logger.WithFields(logrus.Fields{"field": "SaleService.ListRecentSales", "key": key}).Warn("recent sales cache read failed: " + cacheErr.Error())
		} else if found {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	sales, err = s.store.RecentSales(ctx, limit)
	if err != nil {
		return nil, asDomainError("list recent sales", err)
	}
	if sales == nil {
		sales = []*Sale{}
	}

	if ttl > 0 {
		if cacheErr := config.SetRedisObject(key, sales, ttl); cacheErr == nil {
			_ = config.AddRedisSet(recentSalesCacheSet, key)
		} else {
			s.logger.WithFields(logrus.Fields{"field": "SaleService.ListRecentSales", "key": key}).Warn("recent sales cache write failed: " + cacheErr.Error())
		}
	}
	return sales, nil
}

func (s *SaleService) invalidateRecentSales() {
	keys, err := config.GetRedisSetMembers(recentSalesCacheSet)
	if err == nil {
		err = config.RemoveRedisKey(append(keys, recentSalesCacheSet)...)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{"field": "SaleService.invalidateRecentSales"}).Warn("recent sales cache invalidation failed: " + err.Error())
	}
}
