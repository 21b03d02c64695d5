package domain

const (
	RoleAdmin    = "admin"
	RoleLandlord = "landlord"
	RoleComrade  = "comrade"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

const (
	VerificationVerified   = "verified"
	VerificationUnverified = "unverified"
	VerificationPending    = "pending"
)

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// Audit actions recorded for console operators
const (
	AuditLogin             = "LOGIN"
	AuditLoginFailed       = "LOGIN_FAILED"
	AuditLogout            = "LOGOUT"
	AuditUserStatus        = "USER_STATUS"
	AuditPropertyVerify    = "PROPERTY_VERIFY"
	AuditListingEdit       = "LISTING_EDIT"
	AuditListingDelete     = "LISTING_DELETE"
	AuditBookListing       = "BOOK_LISTING"
	AuditPaymentTrigger    = "PAYMENT_TRIGGER"
	AuditPaymentResolved   = "PAYMENT_RESOLVED"
	AuditPaymentAbandon    = "PAYMENT_ABANDON"
	AuditPlanCreate        = "PLAN_CREATE"
	AuditPlanEdit          = "PLAN_EDIT"
	AuditPlanDelete        = "PLAN_DELETE"
	AuditMaintenanceChange = "MAINTENANCE_CHANGE"
)

// Context keys set by the auth middleware
const (
	CtxSession   = "session"
	CtxSessionID = "session_id"
	CtxUserID    = "user_id"
	CtxEmail     = "email"
	CtxRole      = "role"
)

// Console pages
const (
	PageDashboard     = "dashboard"
	PageUsers         = "users"
	PageProperties    = "properties"
	PageListings      = "listings"
	PageBookings      = "bookings"
	PagePayments      = "payments"
	PageVerifications = "verifications"
	PageAuditLogs     = "audit-logs"
	PageSettings      = "settings"
	PageRecent        = "recent"
	PagePlans         = "plans"
	PageLogin         = "login"
)

// Recent activity items shown on the dashboard
const DefaultActivityLimit = 10
