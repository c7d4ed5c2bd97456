package pets

import "context"

// OwnerOf expone el ownerUserID de una mascota.
// Lo usan health y challenges sin importar el modelo completo.
func (s *Service) OwnerOf(ctx context.Context, petID string) (string, error) {
	p, err := s.GetByID(ctx, petID)
	if err != nil {
		return "", err
	}
	return p.OwnerUserID, nil
}

// CanManage: el dueño o un admin pueden mutar la mascota y sus registros.
func (s *Service) CanManage(ctx context.Context, petID, userID string) (bool, error) {
	owner, err := s.OwnerOf(ctx, petID)
	if err != nil {
		return false, err
	}
	if owner == userID {
		return true, nil
	}
	return s.admins != nil && s.admins.IsAdmin(ctx, userID), nil
}
