package views

// A logical one-to-one join yields either one row or none. The helpers below
// take the nullable columns of such a join and return the nested object, or
// nil when there was no match.

// CollapseOwner builds an OwnerSummary from nullable join columns.
func CollapseOwner(id, username, fullName, avatar *string) *OwnerSummary {
	if id == nil {
		return nil
	}
	return &OwnerSummary{
		ID:       *id,
		Username: deref(username),
		FullName: deref(fullName),
		Avatar:   deref(avatar),
	}
}

// CollapseUser builds a UserSummary from nullable join columns.
func CollapseUser(id, username, fullName, email, avatar *string) *UserSummary {
	if id == nil {
		return nil
	}
	return &UserSummary{
		ID:       *id,
		Username: deref(username),
		FullName: deref(fullName),
		Email:    deref(email),
		Avatar:   deref(avatar),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
