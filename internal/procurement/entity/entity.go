package entity

// All 需要 AutoMigrate 的模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Client{},
		&Project{},
		&PurchaseRequest{},
		&PurchaseRequestItem{},
		&Purchase{},
		&PurchaseItem{},
		&PurchaseService{},
		&PurchaseInstallment{},
		&ServiceSale{},
		&ServiceSaleItem{},
		&ServiceSaleInstallment{},
		&DocumentSequence{},
		&ActivityLog{},
		&Attachment{},
	}
}
