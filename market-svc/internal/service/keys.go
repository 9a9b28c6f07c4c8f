package service

const (
	userPrefix   = "user:"
	recipePrefix = "recipe:"
	orderPrefix  = "order:"

	// recipeOrdersKey is a counter hash: recipe id -> orders placed.
	recipeOrdersKey = "recipe-orders"

	statTotalOrders = "totalOrders"
	statTotalSales  = "totalSales"
	statReviewCount = "reviewCount"
)

func userKey(id string) string           { return userPrefix + id }
func emailKey(email string) string       { return "email:" + email }
func recipeKey(id string) string         { return recipePrefix + id }
func orderKey(id string) string          { return orderPrefix + id }
func cookRecipesKey(id string) string    { return "cook:" + id + ":recipes" }
func cookOrdersKey(id string) string     { return "cook:" + id + ":orders" }
func cookStatsKey(id string) string      { return "cook:" + id + ":stats" }
func customerOrdersKey(id string) string { return "customer:" + id + ":orders" }
func fanoutKey(orderID string) string    { return "fanout:" + orderID }
func timelineKey(orderID string) string  { return "timeline:" + orderID }
