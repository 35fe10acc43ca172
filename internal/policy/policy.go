package policy

import (
	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/models"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ID         string
	Username   string
	Role       models.Role
	LocationID *uint
}

// Authenticated reports whether the actor carries an identity
func (a Actor) Authenticated() bool {
	return a.ID != "" && a.Role.Valid()
}

// ActorFromUser builds the actor for a loaded user
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Username: u.Username, Role: u.Role, LocationID: u.LocationID}
}

// Operation names a guarded action
type Operation string

const (
	OpViewProfile      Operation = "profile.view"
	OpUpdateProfile    Operation = "profile.update"
	OpUpdateFCMToken   Operation = "profile.fcm_token"
	OpChangePassword   Operation = "auth.change_password"
	OpLogout           Operation = "auth.logout"
	OpRecoveryContacts Operation = "profile.recovery_contacts"
	OpCreateAdmin      Operation = "admins.create"
	OpListAdmins       Operation = "admins.list"
	OpCreateStaff      Operation = "staff.create"
	OpListStaff        Operation = "staff.list"
	OpUpdateStaff      Operation = "staff.update"
	OpActivateStaff    Operation = "staff.activate"
	OpDeactivateStaff  Operation = "staff.deactivate"
	OpViewCatalog      Operation = "catalog.view"
	OpManageCatalog    Operation = "catalog.manage"
	OpReceiveStock     Operation = "stock.receive"
	OpViewStock        Operation = "stock.view"
	OpDeleteStock      Operation = "stock.delete"
	OpLookupUnit       Operation = "stock.lookup"
	OpCreateSale       Operation = "sales.create"
	OpViewSales        Operation = "sales.view"
	OpViewDashboard    Operation = "reports.dashboard"
	OpSalesReport      Operation = "reports.sales"
	OpInventoryReport  Operation = "reports.inventory"
	OpExportReport     Operation = "reports.export"
)

// OwnershipFunc decides whether the actor may act on the target account
type OwnershipFunc func(actor Actor, target *models.User) bool

// Rule is one row of the policy table
type Rule struct {
	Roles []models.Role
	Owner OwnershipFunc
}

var (
	anyRole        = []models.Role{models.RoleSuperuser, models.RoleAdmin, models.RoleStaff}
	privilegedRole = []models.Role{models.RoleSuperuser, models.RoleAdmin}
	superuserRole  = []models.Role{models.RoleSuperuser}
)

var table = map[Operation]Rule{
	OpViewProfile:      {Roles: anyRole},
	OpUpdateProfile:    {Roles: privilegedRole},
	OpUpdateFCMToken:   {Roles: anyRole},
	OpChangePassword:   {Roles: anyRole},
	OpLogout:           {Roles: anyRole},
	OpRecoveryContacts: {Roles: anyRole},
	OpCreateAdmin:      {Roles: superuserRole},
	OpListAdmins:       {Roles: superuserRole},
	OpCreateStaff:      {Roles: privilegedRole},
	OpListStaff:        {Roles: privilegedRole},
	OpUpdateStaff:      {Roles: privilegedRole, Owner: ManagesStaff},
	OpActivateStaff:    {Roles: privilegedRole, Owner: ManagesStaff},
	OpDeactivateStaff:  {Roles: privilegedRole, Owner: ManagesStaff},
	OpViewCatalog:      {Roles: anyRole},
	OpManageCatalog:    {Roles: privilegedRole},
	OpReceiveStock:     {Roles: anyRole},
	OpViewStock:        {Roles: anyRole},
	OpDeleteStock:      {Roles: privilegedRole},
	OpLookupUnit:       {Roles: anyRole},
	OpCreateSale:       {Roles: anyRole},
	OpViewSales:        {Roles: anyRole},
	OpViewDashboard:    {Roles: anyRole},
	OpSalesReport:      {Roles: anyRole},
	OpInventoryReport:  {Roles: privilegedRole},
	OpExportReport:     {Roles: anyRole},
}

// RuleFor returns the table row of an operation
func RuleFor(op Operation) (Rule, bool) {
	rule, ok := table[op]
	return rule, ok
}

// Authorize checks the role requirement of op
func Authorize(actor Actor, op Operation) error {
	if !actor.Authenticated() {
		return apperror.PermissionDenied("not_authenticated", "authentication required")
	}
	rule, ok := table[op]
	if !ok {
		return apperror.PermissionDenied("unknown_operation", "operation is not allowed")
	}
	for _, role := range rule.Roles {
		if actor.Role == role {
			return nil
		}
	}
	return apperror.PermissionDenied("role_not_allowed", "you do not have permission to perform this action")
}

// AuthorizeTarget checks the role requirement and, when the rule has one, the ownership predicate
func AuthorizeTarget(actor Actor, op Operation, target *models.User) error {
	if err := Authorize(actor, op); err != nil {
		return err
	}
	rule := table[op]
	if rule.Owner != nil && !rule.Owner(actor, target) {
		return apperror.PermissionDenied("not_owner", "you can only manage staff you created")
	}
	return nil
}

// IsSuperuser reports whether the actor is an authenticated superuser
func IsSuperuser(actor Actor) bool {
	return actor.Authenticated() && actor.Role == models.RoleSuperuser
}

// IsAdminOrSuperuser reports whether the actor is an authenticated admin or superuser
func IsAdminOrSuperuser(actor Actor) bool {
	return actor.Authenticated() && actor.Role.IsPrivileged()
}

// ManagesStaff: a superuser manages every non-superuser, an admin only the staff it created
func ManagesStaff(actor Actor, target *models.User) bool {
	if target == nil || target.Role == models.RoleSuperuser || target.ID == actor.ID {
		return false
	}
	switch actor.Role {
	case models.RoleSuperuser:
		return true
	case models.RoleAdmin:
		return target.Role == models.RoleStaff && target.CreatedByID != nil && *target.CreatedByID == actor.ID
	}
	return false
}
