package middleware

import "context"

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxRole    contextKey = "actor_role"
	ctxName    contextKey = "actor_name"
	ctxStoreID contextKey = "store_id"
	ctxDepotID contextKey = "depot_id"
)

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

func NameFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxName)
}

func StoreIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxStoreID)
}

func DepotIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxDepotID)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithIdentity seeds the context the way Auth does, for handlers under test.
func WithIdentity(ctx context.Context, userID, role, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxName, name)
}

// WithStoreID injects the seller's store into the context.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreID, storeID)
}

// WithDepotID injects the depot agent's depot into the context.
func WithDepotID(ctx context.Context, depotID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDepotID, depotID)
}
