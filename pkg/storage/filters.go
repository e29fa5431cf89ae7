package storage

// FilterEndDated keeps end-dated resources only if getEndDated is true
func FilterEndDated[T Resource](getEndDated bool) FilterFunc[T] {
	return func(item T) bool {
		return getEndDated || !item.EndDated()
	}
}
