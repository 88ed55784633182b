package model

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusCheckoutCreated OrderStatus = "CHECKOUT_CREATED"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusFailed          OrderStatus = "FAILED"
)

// OpenOrderStatuses are the only statuses an order may leave.
var OpenOrderStatuses = []string{
	string(OrderStatusPending),
	string(OrderStatusCheckoutCreated),
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCanceled || s == OrderStatusFailed
}

func (s OrderStatus) String() string {
	return string(s)
}

// ItemType discriminates what an order was placed for: a curated build or a
// single catalog component.
type ItemType string

const (
	ItemTypeBuild       ItemType = "build"
	ItemTypeGPU         ItemType = "gpu"
	ItemTypeCPU         ItemType = "cpu"
	ItemTypeRAM         ItemType = "ram"
	ItemTypePSU         ItemType = "psu"
	ItemTypeCase        ItemType = "case"
	ItemTypeMotherboard ItemType = "motherboard"
	ItemTypeStorage     ItemType = "storage"
	ItemTypeCooler      ItemType = "cooler"
	ItemTypeCompact     ItemType = "compact"
)

var ComponentItemTypes = []ItemType{
	ItemTypeGPU,
	ItemTypeCPU,
	ItemTypeRAM,
	ItemTypePSU,
	ItemTypeCase,
	ItemTypeMotherboard,
	ItemTypeStorage,
	ItemTypeCooler,
	ItemTypeCompact,
}

func (t ItemType) IsComponent() bool {
	for _, c := range ComponentItemTypes {
		if t == c {
			return true
		}
	}
	return false
}

func (t ItemType) Valid() bool {
	return t == ItemTypeBuild || t.IsComponent()
}

type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleDev   UserRole = "DEV"
	UserRoleUser  UserRole = "USER"
)
