package enrollment

import "github.com/trezcool/academia/core/student"

func (svc *Service) SetCredentialsFunc(f student.CredentialsFunc) { svc.genCreds = f }
