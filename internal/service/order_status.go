package service

import "github.com/moban-market/internal/constants"

// allowedTransitions 订单状态机。
// pending -> paid / failed / expired；paid -> refunded；其余状态为终态。
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusPaid:    true,
		constants.OrderStatusFailed:  true,
		constants.OrderStatusExpired: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusRefunded: true,
	},
}

// isTransitionAllowed 判断订单状态流转是否合法
func isTransitionAllowed(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}
